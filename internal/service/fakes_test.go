package service

import (
	"context"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"course_study_backend/pkg/email"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"
)

// 以下为服务测试使用的内存存储，行为与 gorm 仓储一致（未找到返回 gorm.ErrRecordNotFound）

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func ensureID(b *model.UUIDBase) {
	if b.ID == "" {
		b.ID = model.GenerateUUID()
	}
}

// ---- tests ----

type memTests struct {
	tests     map[string]*model.CourseTest
	questions map[string][]model.MultipleChoiceQuestion
}

func newMemTests() *memTests {
	return &memTests{
		tests:     map[string]*model.CourseTest{},
		questions: map[string][]model.MultipleChoiceQuestion{},
	}
}

func (m *memTests) add(test *model.CourseTest, questions ...model.MultipleChoiceQuestion) *model.CourseTest {
	ensureID(&test.UUIDBase)
	m.tests[test.ID] = test
	for i := range questions {
		questions[i].CourseTestID = test.ID
	}
	m.questions[test.ID] = append(m.questions[test.ID], questions...)
	return test
}

func (m *memTests) FindTestByID(_ context.Context, id string) (*model.CourseTest, error) {
	t, ok := m.tests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (m *memTests) ListQuestions(_ context.Context, testID string) ([]model.MultipleChoiceQuestion, error) {
	return slices.Clone(m.questions[testID]), nil
}

// ---- test instances ----

type memInstances struct {
	mu          sync.Mutex
	byID        map[string]*model.TestInstance
	order       []string
	finishCalls int
	createErr   error
}

func newMemInstances() *memInstances {
	return &memInstances{byID: map[string]*model.TestInstance{}}
}

// cloneInstance 模拟从数据库重新加载
func cloneInstance(inst *model.TestInstance) *model.TestInstance {
	c := *inst
	c.Questions = make([]model.QuestionInstance, len(inst.Questions))
	for i, q := range inst.Questions {
		c.Questions[i] = cloneQuestion(&q)
	}
	return &c
}

func cloneQuestion(q *model.QuestionInstance) model.QuestionInstance {
	c := *q
	c.AnswerOptions = slices.Clone(q.AnswerOptions)
	if q.AnswerChosen != nil {
		chosen := *q.AnswerChosen
		c.AnswerChosen = &chosen
	}
	return c
}

func (m *memInstances) store(inst *model.TestInstance) {
	ensureID(&inst.UUIDBase)
	m.byID[inst.ID] = cloneInstance(inst)
	m.order = append(m.order, inst.ID)
}

func (m *memInstances) get(id string) *model.TestInstance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

func (m *memInstances) FindByID(_ context.Context, id string) (*model.TestInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneInstance(inst), nil
}

func (m *memInstances) latest(match func(*model.TestInstance) bool) (*model.TestInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.order) - 1; i >= 0; i-- {
		inst := m.byID[m.order[i]]
		if match(inst) {
			return cloneInstance(inst), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memInstances) FindLatestUnfinishedPractice(_ context.Context, studentID, testID string) (*model.TestInstance, error) {
	return m.latest(func(t *model.TestInstance) bool {
		return t.StudentID == studentID && t.CourseTestID == testID && t.IsPractice && t.TestFinishedOn == nil
	})
}

func (m *memInstances) FindCurrentLive(_ context.Context, studentID, testID string) (*model.TestInstance, error) {
	return m.latest(func(t *model.TestInstance) bool {
		return t.StudentID == studentID && t.CourseTestID == testID && !t.IsPractice && t.RetakeID == nil
	})
}

func (m *memInstances) CountPractice(_ context.Context, studentID, testID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.byID {
		if t.StudentID == studentID && t.CourseTestID == testID && t.IsPractice {
			n++
		}
	}
	return n, nil
}

func (m *memInstances) ListByStudentAndTest(_ context.Context, studentID, testID string) ([]model.TestInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.TestInstance
	for _, id := range m.order {
		t := m.byID[id]
		if t.StudentID == studentID && t.CourseTestID == testID {
			list = append(list, *cloneInstance(t))
		}
	}
	return list, nil
}

func (m *memInstances) CreateWithQuestions(_ context.Context, inst *model.TestInstance) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(inst)
	return nil
}

func (m *memInstances) update(id string, fn func(*model.TestInstance) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	return fn(inst), nil
}

func (m *memInstances) MarkStarted(_ context.Context, id string, at time.Time) (bool, error) {
	return m.update(id, func(t *model.TestInstance) bool {
		if t.TestStartedOn != nil {
			return false
		}
		t.TestStartedOn = &at
		return true
	})
}

func (m *memInstances) MarkFinished(_ context.Context, id string, at time.Time) (bool, error) {
	return m.update(id, func(t *model.TestInstance) bool {
		if t.TestFinishedOn != nil {
			return false
		}
		m.finishCalls++
		t.TestFinishedOn = &at
		return true
	})
}

func (m *memInstances) findQuestion(id string) *model.QuestionInstance {
	for _, inst := range m.byID {
		for i := range inst.Questions {
			if inst.Questions[i].ID == id {
				return &inst.Questions[i]
			}
		}
	}
	return nil
}

func (m *memInstances) FindQuestionInstance(_ context.Context, id string) (*model.QuestionInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.findQuestion(id)
	if q == nil {
		return nil, gorm.ErrRecordNotFound
	}
	c := cloneQuestion(q)
	return &c, nil
}

func (m *memInstances) CreateAnswerChosen(_ context.Context, a *model.AnswerChosenInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.findQuestion(a.QuestionInstanceID)
	if q == nil {
		return gorm.ErrRecordNotFound
	}
	if q.AnswerChosen != nil {
		return util.ErrAlreadyAnswered
	}
	ensureID(&a.UUIDBase)
	chosen := *a
	q.AnswerChosen = &chosen
	return nil
}

func (m *memInstances) MarkRetakeRequested(_ context.Context, id string, at time.Time) (bool, error) {
	return m.update(id, func(t *model.TestInstance) bool {
		if t.RetakeID != nil || t.RetakeRequestedOn != nil {
			return false
		}
		t.RetakeRequestedOn = &at
		return true
	})
}

func (m *memInstances) ListPendingRetakes(_ context.Context) ([]model.TestInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.TestInstance
	for _, id := range m.order {
		t := m.byID[id]
		if t.RetakeRequestedOn != nil && t.RetakeID == nil {
			list = append(list, *cloneInstance(t))
		}
	}
	return list, nil
}

func (m *memInstances) LinkRetake(_ context.Context, originalID string, successor *model.TestInstance, reviewerID *string, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	orig, ok := m.byID[originalID]
	if !ok || orig.RetakeID != nil {
		return util.ErrRetakeAlreadyLinked
	}
	m.store(successor)
	orig.RetakeID = &successor.ID
	orig.RetakeRequestedOn = nil
	orig.RetakeReviewedBy = reviewerID
	orig.RetakeNote = note
	return nil
}

func (m *memInstances) ClearRetakeRequest(_ context.Context, id, reviewerID, note string) (bool, error) {
	return m.update(id, func(t *model.TestInstance) bool {
		if t.RetakeID != nil || t.RetakeRequestedOn == nil {
			return false
		}
		t.RetakeRequestedOn = nil
		t.RetakeReviewedBy = &reviewerID
		t.RetakeNote = note
		return true
	})
}

// ---- users ----

type memUsers struct {
	byID map[string]*model.User
}

func newMemUsers(users ...*model.User) *memUsers {
	m := &memUsers{byID: map[string]*model.User{}}
	for _, u := range users {
		ensureID(&u.UUIDBase)
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, user *model.User) error {
	for _, u := range m.byID {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	ensureID(&user.UUIDBase)
	m.byID[user.ID] = user
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, addr string) (*model.User, error) {
	for _, u := range m.byID {
		if u.Email == addr {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	if u, ok := m.byID[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (m *memUsers) StaffEmails(_ context.Context) ([]string, error) {
	var out []string
	for _, u := range m.byID {
		if u.Role.IsStaff() && !u.Disabled {
			out = append(out, u.Email)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ---- students ----

type memStudents struct {
	byID map[string]*model.Student
}

func newMemStudents(students ...*model.Student) *memStudents {
	m := &memStudents{byID: map[string]*model.Student{}}
	for _, s := range students {
		_ = m.Create(context.Background(), s)
	}
	return m
}

func (m *memStudents) Create(_ context.Context, student *model.Student) error {
	for _, s := range m.byID {
		if s.UserID == student.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	ensureID(&student.UUIDBase)
	for i := range student.Documents {
		ensureID(&student.Documents[i].UUIDBase)
		student.Documents[i].StudentID = student.ID
	}
	m.byID[student.ID] = student
	return nil
}

func (m *memStudents) FindByID(_ context.Context, id string) (*model.Student, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *s
	c.Documents = slices.Clone(s.Documents)
	return &c, nil
}

func (m *memStudents) FindByUserID(ctx context.Context, userID string) (*model.Student, error) {
	for _, s := range m.byID {
		if s.UserID == userID {
			return m.FindByID(ctx, s.ID)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStudents) UpdateProfile(_ context.Context, student *model.Student) error {
	s, ok := m.byID[student.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	docs := s.Documents
	*s = *student
	s.Documents = docs
	return nil
}

func (m *memStudents) FindDocument(_ context.Context, id string) (*model.StudentIdentificationDocument, error) {
	for _, s := range m.byID {
		for _, d := range s.Documents {
			if d.ID == id {
				doc := d
				return &doc, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStudents) SaveDocumentUpload(_ context.Context, doc *model.StudentIdentificationDocument) error {
	s, ok := m.byID[doc.StudentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range s.Documents {
		if s.Documents[i].ID == doc.ID {
			s.Documents[i] = *doc
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memStudents) MarkVerificationReady(_ context.Context, id string, at time.Time) (bool, error) {
	s, ok := m.byID[id]
	if !ok || s.VerificationReadyOn != nil {
		return false, nil
	}
	s.VerificationReadyOn = &at
	return true, nil
}

func (m *memStudents) SetVerified(_ context.Context, id, staffID string, at time.Time, note string) error {
	s, ok := m.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.VerifiedOn = &at
	s.VerifiedBy = &staffID
	s.VerificationNote = note
	return nil
}

func (m *memStudents) ClearVerification(_ context.Context, id, note string) error {
	s, ok := m.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.VerificationReadyOn = nil
	s.VerifiedOn = nil
	s.VerifiedBy = nil
	s.VerificationNote = note
	for i := range s.Documents {
		if s.Documents[i].VerificationRequired {
			s.Documents[i].UploadedOn = nil
		}
	}
	return nil
}

func (m *memStudents) ListReadyForVerification(_ context.Context) ([]model.Student, error) {
	var list []model.Student
	for _, s := range m.byID {
		if s.VerificationReadyOn != nil && s.VerifiedOn == nil {
			list = append(list, *s)
		}
	}
	return list, nil
}

// ---- courses ----

type memCourses struct {
	courses    map[string]*model.Course
	signatures []model.CoursePageSignature
	imported   []*model.Course
}

func newMemCourses() *memCourses {
	return &memCourses{courses: map[string]*model.Course{}}
}

func (m *memCourses) add(course *model.Course) *model.Course {
	ensureID(&course.UUIDBase)
	for i := range course.Pages {
		ensureID(&course.Pages[i].UUIDBase)
		course.Pages[i].CourseID = course.ID
	}
	for i := range course.Tests {
		ensureID(&course.Tests[i].UUIDBase)
		course.Tests[i].CourseID = course.ID
	}
	m.courses[course.ID] = course
	return course
}

func (m *memCourses) FindByID(_ context.Context, id string) (*model.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (m *memCourses) ListPublished(_ context.Context) ([]model.Course, error) {
	var list []model.Course
	for _, c := range m.courses {
		if c.IsPublished {
			list = append(list, *c)
		}
	}
	return list, nil
}

func (m *memCourses) ListTests(_ context.Context, courseID string) ([]model.CourseTest, error) {
	c, ok := m.courses[courseID]
	if !ok {
		return nil, nil
	}
	return slices.Clone(c.Tests), nil
}

func (m *memCourses) FindPage(_ context.Context, courseID string, number int) (*model.CoursePage, error) {
	c, ok := m.courses[courseID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for i := range c.Pages {
		if c.Pages[i].PageNumber == number {
			return &c.Pages[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCourses) CountPages(_ context.Context, courseID string) (int64, error) {
	c, ok := m.courses[courseID]
	if !ok {
		return 0, nil
	}
	return int64(len(c.Pages)), nil
}

func (m *memCourses) CreateSignature(_ context.Context, sig *model.CoursePageSignature) error {
	for _, s := range m.signatures {
		if s.StudentID == sig.StudentID && s.CoursePageID == sig.CoursePageID {
			return nil
		}
	}
	ensureID(&sig.UUIDBase)
	m.signatures = append(m.signatures, *sig)
	return nil
}

func (m *memCourses) CountSignatures(_ context.Context, studentID, courseID string) (int64, error) {
	var n int64
	for _, s := range m.signatures {
		if s.StudentID == studentID && s.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (m *memCourses) Import(_ context.Context, course *model.Course) error {
	m.add(course)
	m.imported = append(m.imported, course)
	return nil
}

// ---- views ----

type memViews struct {
	mu          sync.Mutex
	courseViews map[string]*model.CourseViewInstance
	pageViews   map[string]*model.PageViewInstance
	courses     map[string]*model.Course
	// 下一次 CreateCourseView 模拟并发插入导致的唯一索引冲突
	raceOnCreate bool
}

func newMemViews() *memViews {
	return &memViews{
		courseViews: map[string]*model.CourseViewInstance{},
		pageViews:   map[string]*model.PageViewInstance{},
		courses:     map[string]*model.Course{},
	}
}

func viewKey(studentID, courseID string) string { return studentID + "|" + courseID }

func (m *memViews) FindCourseView(_ context.Context, studentID, courseID string) (*model.CourseViewInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.courseViews[viewKey(studentID, courseID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *v
	return &c, nil
}

func (m *memViews) CreateCourseView(_ context.Context, v *model.CourseViewInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := viewKey(v.StudentID, v.CourseID)
	if m.raceOnCreate {
		m.raceOnCreate = false
		winner := *v
		winner.ID = model.GenerateUUID()
		m.courseViews[key] = &winner
		return gorm.ErrDuplicatedKey
	}
	if _, ok := m.courseViews[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	ensureID(&v.UUIDBase)
	c := *v
	m.courseViews[key] = &c
	return nil
}

func (m *memViews) courseView(id string) *model.CourseViewInstance {
	for _, v := range m.courseViews {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func (m *memViews) CreatePageView(_ context.Context, pv *model.PageViewInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.courseView(pv.CourseViewInstanceID) == nil {
		return errors.New("foreign key violation")
	}
	ensureID(&pv.UUIDBase)
	c := *pv
	m.pageViews[pv.ID] = &c
	return nil
}

func (m *memViews) FindPageView(_ context.Context, id string) (*model.PageViewInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pv, ok := m.pageViews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *pv
	if cv := m.courseView(pv.CourseViewInstanceID); cv != nil {
		view := *cv
		view.Course = m.courses[cv.CourseID]
		c.CourseViewInstance = &view
	}
	return &c, nil
}

func (m *memViews) ClosePageView(_ context.Context, id string, stop time.Time, seconds int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pv, ok := m.pageViews[id]
	if !ok || pv.PageViewStop != nil {
		return false, nil
	}
	pv.PageViewStop = &stop
	pv.TotalSecondsSpent = seconds
	return true, nil
}

func (m *memViews) SumSeconds(_ context.Context, courseViewID string, includePractice bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, pv := range m.pageViews {
		if pv.CourseViewInstanceID != courseViewID || pv.PageViewStop == nil {
			continue
		}
		if pv.IsPractice && !includePractice {
			continue
		}
		total += pv.TotalSecondsSpent
	}
	return total, nil
}

func (m *memViews) UpdateCourseViewTotal(_ context.Context, courseViewID string, total int64, stop time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cv := m.courseView(courseViewID)
	if cv == nil {
		return gorm.ErrRecordNotFound
	}
	cv.TotalSecondsSpent = total
	cv.CourseViewStop = &stop
	return nil
}

// ---- notifications ----

type sentNotification struct {
	Recipients []string
	Kind       email.Kind
	Data       map[string]string
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, recipients []string, kind email.Kind, data map[string]string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{Recipients: recipients, Kind: kind, Data: data})
	return nil
}

func (n *fakeNotifier) kinds() []email.Kind {
	var out []email.Kind
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}

// ---- fixtures ----

// mcQuestion 一个正确答案加若干错误答案的题目
func mcQuestion(contents string, wrong ...model.MultipleChoiceAnswer) model.MultipleChoiceQuestion {
	correct := &model.MultipleChoiceAnswer{UUIDBase: model.UUIDBase{ID: model.GenerateUUID()}, Value: contents + " correct"}
	for i := range wrong {
		ensureID(&wrong[i].UUIDBase)
	}
	return model.MultipleChoiceQuestion{
		UUIDBase:                   model.UUIDBase{ID: model.GenerateUUID()},
		QuestionContents:           contents,
		CorrectAnswerID:            correct.ID,
		CorrectAnswer:              correct,
		WrongAnswers:               wrong,
		MultipleChoiceAnswerLength: 4,
	}
}

func wrongAnswers(n int) []model.MultipleChoiceAnswer {
	out := make([]model.MultipleChoiceAnswer, n)
	for i := range out {
		out[i] = model.MultipleChoiceAnswer{UUIDBase: model.UUIDBase{ID: model.GenerateUUID()}, Value: "wrong"}
	}
	return out
}
