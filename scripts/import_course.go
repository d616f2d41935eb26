// 从 YAML 文件导入课程（页面、测试、题目与答案）
//
// 用法: go run scripts/import_course.go -file configs/courses/example.yaml

package main

import (
	"context"
	"course_study_backend/internal/config"
	"course_study_backend/internal/repository"
	"course_study_backend/internal/service"
	"course_study_backend/internal/util"
	"course_study_backend/pkg/database"
	"course_study_backend/pkg/logger"
	"flag"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

func main() {
	file := flag.String("file", "", "课程定义 YAML 文件")
	migrate := flag.Bool("migrate", false, "导入前执行数据库迁移")
	flag.Parse()
	if *file == "" {
		log.Fatal("缺少 -file 参数")
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("无法读取课程文件: %v", err)
	}
	var def service.CourseDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		log.Fatalf("解析课程文件失败: %v", err)
	}

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if *migrate {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("数据库迁移失败: %v", err)
		}
	}

	courses := service.NewCourseService(repository.NewCourseRepository(db), repository.NewTestDefinitionRepository(db),
		nil, nil, util.SystemClock{}, cfg.Course)
	course, err := courses.ImportCourse(context.Background(), &def)
	if err != nil {
		log.Fatalf("导入失败: %v", err)
	}
	log.Printf("导入完成: %s (%s)，%d 页，%d 个测试", course.Name, course.ID, len(course.Pages), len(course.Tests))
}
