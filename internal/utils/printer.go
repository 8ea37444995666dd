package utils

import (
	"fmt"
	"io"

	"github.com/RecoveryAshes/sitecheck/internal/models"
	"github.com/fatih/color"
)

const (
	treeHeader   = "=== Directory tree of visited pages ==="
	brokenHeader = "=== Broken links/pages ==="
	noBroken     = "No broken pages found."
)

// ColorMode 输出着色模式
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // 由fatih/color根据终端和NO_COLOR判断
	ColorAlways ColorMode = "always" // 强制着色
	ColorNever  ColorMode = "never"  // 不着色
)

// ParseColorMode 解析配置中的着色模式,空串视为auto,未知值返回错误
func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(s) {
	case ColorAuto, ColorAlways, ColorNever:
		return ColorMode(s), nil
	case "":
		return ColorAuto, nil
	default:
		return ColorAuto, fmt.Errorf("未知的着色模式 %q (可选: auto, always, never)", s)
	}
}

// Printer 把爬取结果写到标准输出
// 着色只包裹文本,不改变任何字符
type Printer struct {
	out    io.Writer
	header *color.Color
	target *color.Color
	source *color.Color
	ok     *color.Color
}

// NewPrinter 创建结果打印器
func NewPrinter(out io.Writer, mode ColorMode) *Printer {
	p := &Printer{
		out:    out,
		header: color.New(color.FgCyan, color.Bold),
		target: color.New(color.FgRed),
		source: color.New(color.FgHiBlack),
		ok:     color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.header, p.target, p.source, p.ok} {
		switch mode {
		case ColorAlways:
			c.EnableColor()
		case ColorNever:
			c.DisableColor()
		}
	}
	return p
}

// PrintResults 输出目录树和失效账本
func (p *Printer) PrintResults(tree *TreeNode, broken []models.BrokenEntry) error {
	if _, err := fmt.Fprint(p.out, "\n"+p.header.Sprint(treeHeader)+"\n"); err != nil {
		return err
	}
	if err := tree.Render(p.out); err != nil {
		return err
	}

	if len(broken) == 0 {
		_, err := fmt.Fprint(p.out, "\n"+p.ok.Sprint(noBroken)+"\n")
		return err
	}

	if _, err := fmt.Fprint(p.out, "\n"+p.header.Sprint(brokenHeader)+"\n"); err != nil {
		return err
	}
	for _, entry := range broken {
		line := entry.Target + " (" + entry.Cause + ")"
		if _, err := fmt.Fprint(p.out, "🔗 "+p.target.Sprint(line)+"\n"); err != nil {
			return err
		}
		for _, src := range entry.Sources {
			if _, err := fmt.Fprint(p.out, "   └── linked from: "+p.source.Sprint(src)+"\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrintResults 不着色地输出结果
func PrintResults(w io.Writer, visited []string, startURL string, broken []models.BrokenEntry) error {
	return NewPrinter(w, ColorNever).PrintResults(BuildTree(visited, startURL), broken)
}
