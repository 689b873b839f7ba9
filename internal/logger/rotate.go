package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions 描述滚动日志文件。Path 为空表示只输出到 stdout。
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewRotatingWriter 返回按大小滚动的文件 writer。
func NewRotatingWriter(opts FileOptions) (io.WriteCloser, error) {
	path := strings.TrimSpace(opts.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
		LocalTime:  true,
	}, nil
}

// Setup 设置级别，并把输出同时写到 stdout 与滚动文件。返回的 closer 在退出时关闭文件。
func Setup(level string, file FileOptions) (io.Closer, error) {
	SetLevel(level)
	if strings.TrimSpace(file.Path) == "" {
		SetOutput(os.Stdout)
		return io.NopCloser(nil), nil
	}
	w, err := NewRotatingWriter(file)
	if err != nil {
		return nil, err
	}
	SetOutput(io.MultiWriter(os.Stdout, w))
	return w, nil
}
