package model

import (
	"strings"
	"time"
)

type NamePrefix string

const (
	PrefixMs   NamePrefix = "MS"
	PrefixMrs  NamePrefix = "MRS"
	PrefixMr   NamePrefix = "MR"
	PrefixMx   NamePrefix = "MX"
	PrefixDr   NamePrefix = "DR"
	PrefixRev  NamePrefix = "REV"
	PrefixProf NamePrefix = "PROF"
)

// swagger:model Student
type Student struct {
	UUIDBase
	UserID string `gorm:"type:varchar(36);uniqueIndex;not null" json:"userId"`

	Prefix     NamePrefix `gorm:"size:5;default:'MS'" json:"prefix"`
	FirstName  string     `gorm:"size:200;not null" json:"firstName"`
	MiddleName string     `gorm:"size:200" json:"middleName"`
	LastName   string     `gorm:"size:200;not null" json:"lastName"`
	Suffix     string     `gorm:"size:200" json:"suffix"`

	EmailAddress       string `gorm:"size:200" json:"emailAddress"`
	PrimaryPhoneNumber string `gorm:"size:32" json:"primaryPhoneNumber"`
	MobilePhoneNumber  string `gorm:"size:32" json:"mobilePhoneNumber"`

	VerificationReadyOn *time.Time `json:"verificationReadyOn,omitempty"`
	VerifiedOn          *time.Time `json:"verifiedOn,omitempty"`
	VerifiedBy          *string    `gorm:"type:varchar(36)" json:"verifiedBy,omitempty"`
	VerificationNote    string     `gorm:"type:text" json:"verificationNote"`

	Documents []StudentIdentificationDocument `gorm:"foreignKey:StudentID" json:"documents,omitempty"`
}

func (Student) TableName() string {
	return "students"
}

func (s *Student) IsVerified() bool {
	return s.VerifiedOn != nil
}

func (s *Student) FullLegalName() string {
	parts := []string{s.FirstName, s.MiddleName, s.LastName, s.Suffix}
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// StudentIdentificationDocument 学生身份证明材料，标题与描述来自配置
type StudentIdentificationDocument struct {
	UUIDBase
	StudentID            string     `gorm:"type:varchar(36);index;not null" json:"studentId"`
	DocumentTitle        string     `gorm:"size:300" json:"documentTitle"`
	DocumentDescription  string     `gorm:"type:text" json:"documentDescription"`
	VerificationRequired bool       `gorm:"default:false" json:"verificationRequired"`
	ObjectKey            string     `gorm:"size:500" json:"-"`
	FileURL              string     `gorm:"size:500" json:"fileUrl"`
	ContentType          string     `gorm:"size:100" json:"contentType"`
	UploadedOn           *time.Time `json:"uploadedOn,omitempty"`
}

func (StudentIdentificationDocument) TableName() string {
	return "student_identification_documents"
}
