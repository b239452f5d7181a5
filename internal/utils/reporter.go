package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/AutoClicker/internal/models"
	"github.com/nao1215/markdown"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// ReportOptions 报告输出选项
type ReportOptions struct {
	Dir      string // 报告目录
	JSON     bool   // 输出JSON报告
	Markdown bool   // 输出Markdown报告
}

// Reporter 报告生成器
type Reporter struct {
	opts   ReportOptions
	logger zerolog.Logger
}

// NewReporter 创建报告生成器
func NewReporter(opts ReportOptions, logger zerolog.Logger) *Reporter {
	return &Reporter{opts: opts, logger: logger}
}

// PrintSummary 输出文本统计块
func (r *Reporter) PrintSummary(w io.Writer, report *models.ClickReport) {
	stats := report.Stats

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(w, "点击统计\n")
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(w, "总点击数: %d\n", stats.Total)
	fmt.Fprintf(w, "成功点击: %d\n", stats.Successful)
	fmt.Fprintf(w, "失败点击: %d\n", stats.Failed)
	fmt.Fprintf(w, "成功率: %.2f%%\n", stats.SuccessRate())
	if report.Skipped > 0 {
		fmt.Fprintf(w, "未执行(已中断): %d\n", report.Skipped)
	}
	fmt.Fprintf(w, "耗时: %.2f 秒\n", report.Duration)

	fmt.Fprintf(w, "\n各平台统计:\n")
	if len(stats.PerPlatform) == 0 {
		fmt.Fprintf(w, "  (无)\n")
	}
	for _, name := range sortedPlatforms(stats) {
		ps := stats.PerPlatform[name]
		fmt.Fprintf(w, "  %-10s 总数: %d, 成功: %d, 失败: %d, 成功率: %.2f%%\n",
			name, ps.Total, ps.Successful, ps.Failed, ps.SuccessRate())
	}
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", 60))
}

// Write 按选项写出报告文件,返回写出的文件路径
func (r *Reporter) Write(report *models.ClickReport) ([]string, error) {
	if !r.opts.JSON && !r.opts.Markdown {
		return nil, nil
	}
	if err := os.MkdirAll(r.opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("创建报告目录失败: %w", err)
	}

	stamp := report.StartedAt.Format("20060102_150405")
	paths := make([]string, 0, 2)

	if r.opts.JSON {
		path := filepath.Join(r.opts.Dir, "click_report_"+stamp+".json")
		if err := r.saveJSONReport(path, report); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	if r.opts.Markdown {
		path := filepath.Join(r.opts.Dir, "click_report_"+stamp+".md")
		if err := r.saveMarkdownReport(path, report); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	r.logger.Info().Strs("files", paths).Msg("报告已生成")
	return paths, nil
}

// saveJSONReport 保存JSON报告
func (r *Reporter) saveJSONReport(path string, report *models.ClickReport) error {
	jsonData, err := report.ToJSON()
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	r.logger.Debug().Str("path", path).Msg("保存报告")
	return nil
}

// saveMarkdownReport 保存Markdown报告
func (r *Reporter) saveMarkdownReport(path string, report *models.ClickReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建报告文件失败: %w", err)
	}
	defer f.Close()

	if err := WriteMarkdown(f, report); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	r.logger.Debug().Str("path", path).Msg("保存报告")
	return nil
}

// WriteMarkdown 以Markdown格式输出报告
func WriteMarkdown(w io.Writer, report *models.ClickReport) error {
	md := markdown.NewMarkdown(w)
	stats := report.Stats

	md.H1("点击报告")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"项目", "值"},
		Rows: [][]string{
			{"运行ID", "`" + report.RunID + "`"},
			{"策略", report.Engine},
			{"并发数", strconv.Itoa(report.Workers)},
			{"开始时间", report.StartedAt.Format("2006-01-02 15:04:05")},
			{"耗时(秒)", strconv.FormatFloat(report.Duration, 'f', 2, 64)},
			{"目标数", strconv.Itoa(report.Targets)},
		},
	})
	md.PlainText("")

	md.H2("汇总")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"总点击数", "成功", "失败", "成功率"},
		Rows: [][]string{{
			strconv.Itoa(stats.Total),
			strconv.Itoa(stats.Successful),
			strconv.Itoa(stats.Failed),
			fmt.Sprintf("%.2f%%", stats.SuccessRate()),
		}},
	})
	md.PlainText("")

	switch {
	case report.Skipped > 0:
		md.Warningf("运行被中断,%d 个目标未执行。", report.Skipped)
	case stats.Total > 0 && stats.Failed == stats.Total:
		md.Cautionf("全部 %d 次点击失败。", stats.Total)
	case stats.Failed > 0:
		md.Importantf("%d 次点击失败,详见下方列表。", stats.Failed)
	}
	md.PlainText("")

	md.H2("各平台统计")
	md.PlainText("")
	rows := make([][]string, 0, len(stats.PerPlatform))
	for _, name := range sortedPlatforms(stats) {
		ps := stats.PerPlatform[name]
		rows = append(rows, []string{
			name,
			strconv.Itoa(ps.Total),
			strconv.Itoa(ps.Successful),
			strconv.Itoa(ps.Failed),
			fmt.Sprintf("%.2f%%", ps.SuccessRate()),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"平台", "总数", "成功", "失败", "成功率"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(report.Failures) > 0 {
		md.H2("失败目标")
		md.PlainText("")
		failRows := make([][]string, 0, len(report.Failures))
		for _, f := range report.Failures {
			failRows = append(failRows, []string{
				Truncate(f.Target, 60),
				f.Platform,
				string(f.Kind),
				Truncate(f.Error, 80),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"目标", "平台", "类别", "原因"},
			Rows:   failRows,
		})
		md.PlainText("")
	}

	return md.Build()
}

func sortedPlatforms(stats models.ClickStats) []string {
	names := make([]string, 0, len(stats.PerPlatform))
	for name := range stats.PerPlatform {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		w = os.Stderr
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
