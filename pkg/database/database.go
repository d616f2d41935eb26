package database

import (
	"course_study_backend/internal/config"
	"course_study_backend/internal/model"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models 按依赖顺序列出需要迁移的表
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Student{},
		&model.StudentIdentificationDocument{},
		&model.Course{},
		&model.CoursePage{},
		&model.CoursePageSignature{},
		&model.CourseTest{},
		&model.MultipleChoiceAnswer{},
		&model.MultipleChoiceQuestion{},
		&model.TestInstance{},
		&model.QuestionInstance{},
		&model.AnswerOptionInstance{},
		&model.AnswerChosenInstance{},
		&model.CourseViewInstance{},
		&model.PageViewInstance{},
	}
}

// DSN 根据驱动拼接连接串
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.SSLMode,
		)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)
}

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(DSN(cfg))
	default:
		dialector = mysql.Open(DSN(cfg))
	}

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		// 唯一索引冲突统一翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Database connection established (%s)", cfg.Driver)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	log.Println("Database migration completed")
	return nil
}
