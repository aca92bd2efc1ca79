package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mortal/shiftplanner/internal/model"
	"github.com/Mortal/shiftplanner/pkg/database"
	"github.com/Mortal/shiftplanner/pkg/dateutil"
)

// workplaceFlag 绑定 --workplace，缺省取配置中的 workplace.default_id
func workplaceFlag(cmd *cobra.Command, a *app, id *int64) {
	cmd.Flags().Int64VarP(id, "workplace", "w", 0, "工作场所 ID（默认取配置）")
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if *id == 0 {
			*id = a.cfg.Workplace.DefaultID
		}
	}
}

func migrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			return database.Migrate(a.db, a.cfg.Database.Driver, a.logger)
		},
	}
}

func workplaceCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workplace",
		Short: "工作场所管理",
	}

	var slug, name, timezone string
	create := &cobra.Command{
		Use:   "create",
		Short: "创建工作场所（模板为空，之后通过接口配置）",
		RunE: func(cmd *cobra.Command, args []string) error {
			if timezone == "" {
				timezone = a.cfg.Workplace.Timezone
			}
			wp := &model.Workplace{Slug: slug, Name: name, Timezone: timezone}
			if _, err := wp.Location(); err != nil {
				return err
			}
			if err := a.repo.Workplace.Create(cmd.Context(), wp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created workplace %d (%s)\n", wp.ID, wp.Slug)
			return nil
		},
	}
	create.Flags().StringVar(&slug, "slug", "", "标识")
	create.Flags().StringVar(&name, "name", "", "名称")
	create.Flags().StringVar(&timezone, "timezone", "", "时区（默认取配置）")
	_ = create.MarkFlagRequired("slug")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)
	return cmd
}

func materializeCommand(a *app) *cobra.Command {
	var (
		workplaceID int64
		from, to    string
	)
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "按模板生成 [from, to] 内每天的班次",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := dateutil.ParseDate(from)
			if err != nil {
				return err
			}
			t, err := dateutil.ParseDate(to)
			if err != nil {
				return err
			}
			n, err := a.svc.Shift.MaterializeRange(cmd.Context(), workplaceID, f, t)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d shifts\n", n)
			return nil
		},
	}
	workplaceFlag(cmd, a, &workplaceID)
	cmd.Flags().StringVar(&from, "from", "", "开始日期 YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "结束日期 YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func statsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "统计聚合表维护",
	}

	var workplaceID int64
	check := &cobra.Command{
		Use:   "check",
		Short: "列出尚未刷新的增量",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.svc.Stats.PrepareUpdate(cmd.Context(), workplaceID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "increased=%d unchanged=%d decreased=%d\n", plan.Increased, plan.Unchanged, plan.Decreased)
			for _, d := range plan.Deltas {
				fmt.Fprintf(out, "%s %+d\n", d.Bucket, d.Delta)
			}
			return nil
		},
	}
	workplaceFlag(check, a, &workplaceID)

	var flushWorkplaceID int64
	flush := &cobra.Command{
		Use:   "flush",
		Short: "把增量写入聚合表",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.svc.Stats.Flush(cmd.Context(), flushWorkplaceID, systemActor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "flushed %d buckets\n", len(plan.Deltas))
			return nil
		},
	}
	workplaceFlag(flush, a, &flushWorkplaceID)

	cmd.AddCommand(check, flush)
	return cmd
}

func pruneCommand(a *app) *cobra.Command {
	var (
		workplaceID int64
		before      string
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "删除截止日（周一）之前的原始排班数据，统计历史保留在聚合表",
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := dateutil.ParseDate(before)
			if err != nil {
				return err
			}
			plan, err := a.svc.Prune.PreparePrune(cmd.Context(), workplaceID, cutoff)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "before %s: shifts=%d worker_shifts=%d comments=%d\n",
				plan.Before, plan.Shifts, plan.WorkerShifts, plan.Comments)
			if dryRun {
				return nil
			}
			if err := a.svc.Prune.Prune(cmd.Context(), plan, systemActor); err != nil {
				return err
			}
			fmt.Fprintln(out, "pruned")
			return nil
		},
	}
	workplaceFlag(cmd, a, &workplaceID)
	cmd.Flags().StringVar(&before, "before", "", "截止日期（不含）YYYY-MM-DD，必须是周一")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "只统计，不删除")
	_ = cmd.MarkFlagRequired("before")
	return cmd
}
