package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"fiberatt/internal/config"
	"fiberatt/internal/logger"

	"github.com/spf13/cobra"
)

const (
	configEnv         = "FIBERATT_CONFIG"
	defaultConfigPath = "configs/config.yaml"
)

var (
	configFlag string
	logLevel   string
	logFile    *os.File
)

// rootCmd 是所有子命令的挂载点。
var rootCmd = &cobra.Command{
	Use:           "fiberatt",
	Short:         "Fit exponential fiber attenuation with 95% confidence bands",
	Long:          `fiberatt fits P(L) = P0·exp(-alpha·L) to (length, power) measurements, reports parameter uncertainty and draws best-fit and confidence curves in linear and dB domains.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file (default $"+configEnv+" or "+defaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override app.log_level")
}

// resolveConfigPath 按 --config → 环境变量 → 默认路径 的顺序选择配置文件。
func resolveConfigPath() (path string, explicit bool) {
	if p := strings.TrimSpace(configFlag); p != "" {
		return p, true
	}
	if p := strings.TrimSpace(os.Getenv(configEnv)); p != "" {
		return p, true
	}
	return defaultConfigPath, false
}

// loadConfig 读取配置并初始化日志；默认路径不存在时只用默认值与 FIBERATT_* 环境变量。
func loadConfig() (*config.Config, string, error) {
	logger.SetOutput(os.Stderr)
	path, explicit := resolveConfigPath()
	if _, statErr := os.Stat(path); !explicit && errors.Is(statErr, fs.ErrNotExist) {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("读取配置失败: %w", err)
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	logger.SetFormat(cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)
	f, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return nil, "", fmt.Errorf("初始化日志文件失败: %w", err)
	}
	logFile = f
	if path == "" {
		logger.Debugf("config file %s not found, using defaults", defaultConfigPath)
	} else {
		logger.Debugf("config loaded from %s (env=%s)", path, cfg.App.Env)
	}
	return cfg, path, nil
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stderr, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
