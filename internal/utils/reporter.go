package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/ThreadCrawl/internal/formatter"
	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
	"github.com/schollz/progressbar/v3"
)

// Reporter 结果输出器
// 按格式渲染结果,写到指定Writer或输出目录
type Reporter struct {
	outputDir string
	format    string
}

// NewReporter 创建结果输出器
func NewReporter(outputDir string, format string) *Reporter {
	if format == "" {
		format = formatter.FormatJSON
	}
	return &Reporter{
		outputDir: outputDir,
		format:    format,
	}
}

// Format 当前输出格式
func (r *Reporter) Format() string {
	return r.format
}

// Write 渲染结果并写入w
func (r *Reporter) Write(w io.Writer, result *models.ThreadResult) error {
	data, err := formatter.Render(result, r.format)
	if err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("写入结果失败: %w", err)
	}
	return nil
}

// WriteFile 渲染结果并写入指定文件
func (r *Reporter) WriteFile(path string, result *models.ThreadResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	defer file.Close()

	if err := r.Write(file, result); err != nil {
		return err
	}
	Debugf("保存结果: %s", path)
	return nil
}

// SaveResult 保存到输出目录,文件名为 <作者>_<帖子ID>.<扩展名>
func (r *Reporter) SaveResult(target models.ExtractionTarget, result *models.ThreadResult) (string, error) {
	name := fmt.Sprintf("%s_%s%s", target.Author, target.PostID, formatter.Extension(r.format))
	path := filepath.Join(r.outputDir, name)
	if err := r.WriteFile(path, result); err != nil {
		return "", err
	}
	return path, nil
}

// SaveJSONReport 在输出目录保存JSON报告
func (r *Reporter) SaveJSONReport(filename string, data interface{}) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}
	path := filepath.Join(r.outputDir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return path, nil
}

// NewProgressBar 创建进度条,输出到stderr
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(os.Stderr),
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
