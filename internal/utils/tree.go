package utils

import (
	"io"
	"net/url"
	"slices"
	"strings"
)

// TreeNode 目录树节点,子节点按路径段索引
type TreeNode struct {
	Children map[string]*TreeNode
}

func newTreeNode() *TreeNode {
	return &TreeNode{Children: make(map[string]*TreeNode)}
}

// BuildTree 把已访问的页面键组织成目录树
// 先去掉起始URL的 scheme://host 前缀,再去掉首尾 "/" 按 "/" 切分;站点根对应空段 ""
// 不以该前缀开头的键整体作为路径切分
func BuildTree(visited []string, startURL string) *TreeNode {
	prefix := startURL
	if u, err := url.Parse(startURL); err == nil {
		prefix = u.Scheme + "://" + u.Host
		if u.User != nil {
			prefix = u.Scheme + "://" + u.User.String() + "@" + u.Host
		}
	}

	root := newTreeNode()
	for _, key := range visited {
		path := strings.TrimPrefix(key, prefix)

		parts := []string{""}
		if trimmed := strings.Trim(path, "/"); trimmed != "" {
			parts = strings.Split(trimmed, "/")
		}

		node := root
		for _, part := range parts {
			child, ok := node.Children[part]
			if !ok {
				child = newTreeNode()
				node.Children[part] = child
			}
			node = child
		}
	}
	return root
}

// Render 深度优先输出,兄弟节点按字典序排列,空段显示为 "/"
func (n *TreeNode) Render(w io.Writer) error {
	return n.render(w, "")
}

func (n *TreeNode) render(w io.Writer, prefix string) error {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	slices.Sort(names)

	for i, name := range names {
		last := i == len(names)-1
		connector, extension := "├── ", "│   "
		if last {
			connector, extension = "└── ", "    "
		}

		label := name
		if label == "" {
			label = "/"
		}
		if _, err := io.WriteString(w, prefix+connector+label+"\n"); err != nil {
			return err
		}
		if err := n.Children[name].render(w, prefix+extension); err != nil {
			return err
		}
	}
	return nil
}

// String 渲染为字符串
func (n *TreeNode) String() string {
	var b strings.Builder
	_ = n.Render(&b)
	return b.String()
}
