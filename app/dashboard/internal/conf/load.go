package conf

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile 从 YAML 文件加载配置，供不经过 kratos 启动流程的命令行工具使用。
// 与服务端一致，字符串中的 ${VAR} / ${VAR:default} 占位符会用环境变量替换。
func LoadFile(path string) (*Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		name, def, _ := strings.Cut(key, ":")
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			return v
		}
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return def
	})

	var bc Bootstrap
	if err := yaml.Unmarshal([]byte(expanded), &bc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &bc, nil
}

// EnvPrefix 服务端 env source 使用的前缀
const EnvPrefix = "DASHBOARD_"
