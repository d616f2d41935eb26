package repository

import (
	"context"
	"course_study_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type StudentRepository struct {
	DB *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

// Create 学生与其身份材料在同一事务中写入
func (r *StudentRepository) Create(ctx context.Context, student *model.Student) error {
	return r.DB.WithContext(ctx).Create(student).Error
}

func (r *StudentRepository) FindByID(ctx context.Context, id string) (*model.Student, error) {
	var s model.Student
	err := r.DB.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*model.Student, error) {
	var s model.Student
	err := r.DB.WithContext(ctx).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("user_id = ?", userID).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StudentRepository) UpdateProfile(ctx context.Context, s *model.Student) error {
	return r.DB.WithContext(ctx).Model(&model.Student{}).
		Where("id = ?", s.ID).
		Updates(map[string]interface{}{
			"prefix":               s.Prefix,
			"first_name":           s.FirstName,
			"middle_name":          s.MiddleName,
			"last_name":            s.LastName,
			"suffix":               s.Suffix,
			"email_address":        s.EmailAddress,
			"primary_phone_number": s.PrimaryPhoneNumber,
			"mobile_phone_number":  s.MobilePhoneNumber,
		}).Error
}

func (r *StudentRepository) FindDocument(ctx context.Context, id string) (*model.StudentIdentificationDocument, error) {
	var d model.StudentIdentificationDocument
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *StudentRepository) SaveDocumentUpload(ctx context.Context, doc *model.StudentIdentificationDocument) error {
	return r.DB.WithContext(ctx).Model(doc).Updates(map[string]interface{}{
		"object_key":   doc.ObjectKey,
		"file_url":     doc.FileURL,
		"content_type": doc.ContentType,
		"uploaded_on":  doc.UploadedOn,
	}).Error
}

// MarkVerificationReady 仅在尚未就绪时设置，返回是否本次设置成功
func (r *StudentRepository) MarkVerificationReady(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&model.Student{}).
		Where("id = ? AND verification_ready_on IS NULL", id).
		Update("verification_ready_on", at)
	return res.RowsAffected > 0, res.Error
}

func (r *StudentRepository) SetVerified(ctx context.Context, id, staffID string, at time.Time, note string) error {
	return r.DB.WithContext(ctx).Model(&model.Student{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"verified_on":       at,
			"verified_by":       staffID,
			"verification_note": note,
		}).Error
}

// ClearVerification 驳回后学生需要重新上传材料
func (r *StudentRepository) ClearVerification(ctx context.Context, id, note string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Student{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"verification_ready_on": nil,
				"verified_on":           nil,
				"verified_by":           nil,
				"verification_note":     note,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&model.StudentIdentificationDocument{}).
			Where("student_id = ? AND verification_required = ?", id, true).
			Update("uploaded_on", nil).Error
	})
}

// ListReadyForVerification 员工审核队列
func (r *StudentRepository) ListReadyForVerification(ctx context.Context) ([]model.Student, error) {
	var students []model.Student
	err := r.DB.WithContext(ctx).
		Preload("Documents").
		Where("verification_ready_on IS NOT NULL AND verified_on IS NULL").
		Order("verification_ready_on ASC").
		Find(&students).Error
	return students, err
}
