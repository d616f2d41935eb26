package service

import (
	"context"
	"course_study_backend/internal/config"
	"course_study_backend/internal/model"
	"course_study_backend/internal/util"
	"course_study_backend/pkg/email"
	"course_study_backend/pkg/logger"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DocumentStorage 由 StorageService 实现
type DocumentStorage interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
}

type StudentService struct {
	Students  StudentStore
	Users     UserStore
	Storage   DocumentStorage
	Notifier  Notifier
	Clock     util.Clock
	Documents []config.IdentificationDocument
	PublicURL string
}

func NewStudentService(students StudentStore, users UserStore, storage DocumentStorage, notifier Notifier,
	clock util.Clock, cfg *config.Config) *StudentService {
	return &StudentService{
		Students:  students,
		Users:     users,
		Storage:   storage,
		Notifier:  notifier,
		Clock:     clock,
		Documents: cfg.Verification.Documents,
		PublicURL: cfg.Server.PublicURL,
	}
}

type ProfileRequest struct {
	Prefix             model.NamePrefix `json:"prefix" binding:"omitempty,oneof=MS MRS MR MX DR REV PROF"`
	FirstName          string           `json:"firstName" binding:"required,max=200"`
	MiddleName         string           `json:"middleName" binding:"max=200"`
	LastName           string           `json:"lastName" binding:"required,max=200"`
	Suffix             string           `json:"suffix" binding:"max=200"`
	EmailAddress       string           `json:"emailAddress" binding:"omitempty,email"`
	PrimaryPhoneNumber string           `json:"primaryPhoneNumber" binding:"max=32"`
	MobilePhoneNumber  string           `json:"mobilePhoneNumber" binding:"max=32"`
}

// splitName 账号姓名拆为名与姓
func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// GetOrCreateFromUser 首次创建时按配置生成身份材料；无需审核的材料时直接视为已验证
func (s *StudentService) GetOrCreateFromUser(ctx context.Context, user *model.User) (*model.Student, error) {
	student, err := s.Students.FindByUserID(ctx, user.ID)
	if err == nil {
		return student, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	first, last := splitName(user.Name)
	student = &model.Student{
		UserID:       user.ID,
		Prefix:       model.PrefixMs,
		FirstName:    first,
		LastName:     last,
		EmailAddress: user.Email,
	}

	requiresVerification := false
	for _, d := range s.Documents {
		student.Documents = append(student.Documents, model.StudentIdentificationDocument{
			DocumentTitle:        d.Title,
			DocumentDescription:  d.Description,
			VerificationRequired: d.VerificationRequired,
		})
		if d.VerificationRequired {
			requiresVerification = true
		}
	}
	if !requiresVerification {
		now := s.Clock.Now()
		student.VerificationReadyOn = &now
		student.VerifiedOn = &now
	}

	if err := s.Students.Create(ctx, student); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.Students.FindByUserID(ctx, user.ID)
		}
		return nil, err
	}

	logger.Log.Info("Student created",
		zap.String("student_id", student.ID),
		zap.String("user_id", user.ID),
		zap.Bool("verified", student.IsVerified()),
	)
	return student, nil
}

// ResolveStudent 供中间件按账号取得学生档案
func (s *StudentService) ResolveStudent(ctx context.Context, userID string) (*model.Student, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetOrCreateFromUser(ctx, user)
}

func (s *StudentService) Get(ctx context.Context, studentID string) (*model.Student, error) {
	student, err := s.Students.FindByID(ctx, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrStudentNotFound
	}
	return student, err
}

func (s *StudentService) UpdateProfile(ctx context.Context, studentID string, req *ProfileRequest) (*model.Student, error) {
	student, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if req.Prefix != "" {
		student.Prefix = req.Prefix
	}
	student.FirstName = strings.TrimSpace(req.FirstName)
	student.MiddleName = strings.TrimSpace(req.MiddleName)
	student.LastName = strings.TrimSpace(req.LastName)
	student.Suffix = strings.TrimSpace(req.Suffix)
	student.EmailAddress = req.EmailAddress
	student.PrimaryPhoneNumber = req.PrimaryPhoneNumber
	student.MobilePhoneNumber = req.MobilePhoneNumber
	if err := s.Students.UpdateProfile(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// UploadDocument 保存文件；全部必需材料上传后标记为待审核并通知员工
func (s *StudentService) UploadDocument(ctx context.Context, studentID, documentID string, file io.Reader, size int64, contentType string) (*model.StudentIdentificationDocument, error) {
	doc, err := s.Students.FindDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrDocumentNotFound
		}
		return nil, err
	}
	if doc.StudentID != studentID {
		return nil, util.ErrDocumentNotFound
	}
	if size <= 0 || size > util.MaxDocumentSize || !slices.Contains(util.AllowedDocumentTypes, contentType) {
		return nil, util.ErrInvalidDocument
	}

	key := DocumentObjectKey(studentID, doc.ID, contentType)
	url, err := s.Storage.Upload(ctx, key, file, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	now := s.Clock.Now()
	doc.ObjectKey = key
	doc.FileURL = url
	doc.ContentType = contentType
	doc.UploadedOn = &now
	if err := s.Students.SaveDocumentUpload(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.checkVerificationReady(ctx, studentID); err != nil {
		logger.Log.Error("Failed to check verification readiness",
			zap.String("student_id", studentID),
			zap.Error(err),
		)
	}
	return doc, nil
}

func (s *StudentService) checkVerificationReady(ctx context.Context, studentID string) error {
	student, err := s.Students.FindByID(ctx, studentID)
	if err != nil {
		return err
	}
	if student.IsVerified() || student.VerificationReadyOn != nil {
		return nil
	}
	for _, d := range student.Documents {
		if d.VerificationRequired && d.UploadedOn == nil {
			return nil
		}
	}

	marked, err := s.Students.MarkVerificationReady(ctx, studentID, s.Clock.Now())
	if err != nil || !marked {
		return err
	}

	recipients, err := s.Users.StaffEmails(ctx)
	if err != nil {
		return err
	}
	notify(ctx, s.Notifier, recipients, email.KindStudentVerificationReady, map[string]string{
		"StudentName": student.FullLegalName(),
		"Link":        s.PublicURL,
	})
	return nil
}

func (s *StudentService) ListPendingVerifications(ctx context.Context) ([]model.Student, error) {
	return s.Students.ListReadyForVerification(ctx)
}

// ReviewVerification 审核通过或驳回身份材料，并通知学生
func (s *StudentService) ReviewVerification(ctx context.Context, staffID, studentID string, approved bool, note string) (*model.Student, error) {
	student, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	kind := email.KindVerificationRejected
	if approved {
		if err := s.Students.SetVerified(ctx, studentID, staffID, s.Clock.Now(), note); err != nil {
			return nil, err
		}
		kind = email.KindVerificationApproved
	} else {
		if err := s.Students.ClearVerification(ctx, studentID, note); err != nil {
			return nil, err
		}
	}
	logger.Log.Info("Student verification reviewed",
		zap.String("student_id", studentID),
		zap.String("staff_id", staffID),
		zap.Bool("approved", approved),
	)

	addr, name := studentContact(ctx, s.Students, s.Users, studentID)
	if addr != "" {
		notify(ctx, s.Notifier, []string{addr}, kind, map[string]string{
			"StudentName": name,
			"Note":        note,
			"Link":        s.PublicURL,
		})
	}

	return s.Get(ctx, student.ID)
}
