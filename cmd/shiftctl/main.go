// shiftctl 排班服务的运维命令行：迁移、建场所、批量生成班次、刷新统计、清理历史。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Mortal/shiftplanner/config"
	"github.com/Mortal/shiftplanner/internal/changelog"
	"github.com/Mortal/shiftplanner/internal/repository"
	"github.com/Mortal/shiftplanner/internal/service"
	"github.com/Mortal/shiftplanner/pkg/database"
	applogger "github.com/Mortal/shiftplanner/pkg/logger"
)

const programName = "shiftctl"

// app 子命令共享的依赖，由根命令的 PersistentPreRunE 初始化
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	repo   *repository.Repository
	svc    *service.Service
}

// systemActor 命令行操作记为系统操作
var systemActor = changelog.Actor{}

func (a *app) close() {
	if a.db != nil {
		if sqlDB, _ := a.db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newRootCommand() *cobra.Command {
	var (
		configFile string
		a          = &app{}
	)

	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "排班服务运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logger, err := applogger.NewLogger(&cfg.Log)
			if err != nil {
				return fmt.Errorf("初始化日志失败: %w", err)
			}
			logger = logger.With(zap.String("component", programName))
			db, err := database.NewDB(&cfg.Database, logger)
			if err != nil {
				return err
			}
			repo := repository.NewRepository(db)
			*a = app{
				cfg:    cfg,
				logger: logger,
				db:     db,
				repo:   repo,
				svc:    service.NewService(cfg, repo, nil, nil, logger),
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")

	rootCmd.AddCommand(
		migrateCommand(a),
		workplaceCommand(a),
		materializeCommand(a),
		statsCommand(a),
		pruneCommand(a),
	)
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
