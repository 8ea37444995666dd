package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/sitecheck/internal/models"
)

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		urlFile string
		want    string
		wantErr bool
	}{
		{"位置参数", []string{"https://ex.test"}, "", "https://ex.test", false},
		{"批量模式", nil, "sites.txt", "", false},
		{"缺少URL", nil, "", "", true},
		{"同时指定", []string{"https://ex.test"}, "sites.txt", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveTarget(tt.args, tt.urlFile)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveTarget() = %q, 期望 %q", got, tt.want)
			}
		})
	}

	if _, err := resolveTarget(nil, ""); !errors.Is(err, errMissingURL) {
		t.Errorf("缺少URL应返回 errMissingURL, 实际 %v", err)
	}
}

func TestValidateFlags(t *testing.T) {
	valid := models.DefaultCrawlConfig()

	tests := []struct {
		name    string
		url     string
		cfg     func(*models.CrawlConfig)
		wantErr bool
	}{
		{"有效参数", "https://example.com/docs", nil, false},
		{"批量模式不校验URL", "", nil, false},
		{"无效URL", "example.com", nil, true},
		{"不支持的协议", "ftp://example.com", nil, true},
		{"最大页面数为负", "https://example.com", func(c *models.CrawlConfig) { c.MaxPages = -1 }, true},
		{"并发数超限", "https://example.com", func(c *models.CrawlConfig) { c.Workers = models.MaxWorkersLimit + 1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			if err := ValidateFlags(tt.url, cfg); (err != nil) != tt.wantErr {
				t.Errorf("ValidateFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInitCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "configs")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"init", dir})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("init 执行失败: %v", err)
	}
	for _, name := range []string{"config.yaml", "headers.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s 未生成: %v", name, err)
		}
	}
	if !strings.Contains(out.String(), "已生成") {
		t.Errorf("输出 = %q", out.String())
	}
}
