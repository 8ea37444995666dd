package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed headers_template.yaml
var defaultHeaderTemplate string

//go:embed config_template.yaml
var defaultConfigTemplate string

// Template 一个可生成的配置文件
type Template struct {
	Name    string
	Content string
}

// Templates 返回 init 子命令生成的全部模板
func Templates() []Template {
	return []Template{
		{Name: "config.yaml", Content: defaultConfigTemplate},
		{Name: "headers.yaml", Content: defaultHeaderTemplate},
	}
}

// WriteTemplates 在dir下生成配置模板,返回实际写入的文件
// 已存在的文件在force为false时跳过
func WriteTemplates(dir string, force bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
	}

	var written []string
	for _, tpl := range Templates() {
		path := filepath.Join(dir, tpl.Name)
		if !force {
			if _, err := os.Stat(path); err == nil {
				continue
			} else if !errors.Is(err, fs.ErrNotExist) {
				return written, fmt.Errorf("无法访问 [%s]: %w", path, err)
			}
		}
		if err := os.WriteFile(path, []byte(tpl.Content), 0644); err != nil {
			return written, fmt.Errorf("无法生成配置文件 [%s]: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
