package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server ServerConfig `toml:"server"`
	Data   DataConfig   `toml:"data"`
	Import ImportConfig `toml:"import"`
	Commit CommitConfig `toml:"commit"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// ImportConfig 导入限制配置
//
// 表格与压缩包各有独立上限，解析开始前检查（超限错误与解析错误区分）。
type ImportConfig struct {
	MaxSpreadsheetMB int64 `toml:"max_spreadsheet_mb"`
	MaxArchiveMB     int64 `toml:"max_archive_mb"`
}

// CommitConfig 提交配置
type CommitConfig struct {
	Workers        int `toml:"workers"`         // 提交并发度
	TimeoutSeconds int `toml:"timeout_seconds"` // 单行提交超时
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20281,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Import: ImportConfig{
			MaxSpreadsheetMB: 10,
			MaxArchiveMB:     200,
		},
		Commit: CommitConfig{
			Workers:        4,
			TimeoutSeconds: 30,
		},
	}
}

// MaxSpreadsheetBytes 表格文件大小上限（字节）
func (c *AppConfig) MaxSpreadsheetBytes() int64 {
	return c.Import.MaxSpreadsheetMB * 1024 * 1024
}

// MaxArchiveBytes 压缩包大小上限（字节）
func (c *AppConfig) MaxArchiveBytes() int64 {
	return c.Import.MaxArchiveMB * 1024 * 1024
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config := DefaultConfig()

	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}

	configPath := filepath.Join(exeDir, "config.toml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 配置文件不存在，使用默认配置
			return config, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	// 环境变量覆盖（用于 E2E / 本地运行）
	if v := os.Getenv("ADMITFLOW_DATA_DIR"); v != "" {
		config.Data.DataDir = v
	}

	return config, nil
}

// EnsureDataDir 确保数据目录存在
// 数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}

	dataDir := filepath.Join(exeDir, config.Data.DataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 创建子目录
	subdirs := []string{"uploads", "templates"}
	for _, subdir := range subdirs {
		path := filepath.Join(dataDir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", err
		}
	}

	return dataDir, nil
}
