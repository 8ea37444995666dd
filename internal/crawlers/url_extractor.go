package crawlers

import (
	"bytes"
	"iter"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// skippedHrefPrefixes 这些href不指向页面,直接忽略
var skippedHrefPrefixes = []string{"#", "mailto:", "javascript:", "tel:"}

// ExtractLinks 从HTML中提取所有 <a href> 链接,解析为绝对URL
// 返回的序列是惰性的: 开始迭代时才解析HTML,只能遍历一次
// 引擎需要同一棵DOM再取标题,因此直接使用 ParseHTML + LinksFromNode
func ExtractLinks(body []byte, pageURL string) iter.Seq[string] {
	return func(yield func(string) bool) {
		root, err := ParseHTML(body)
		if err != nil {
			log.Debug().Err(err).Str("url", pageURL).Msg("解析HTML失败,忽略该页面的链接")
			return
		}
		for link := range LinksFromNode(root, pageURL) {
			if !yield(link) {
				return
			}
		}
	}
}

// ParseHTML 宽松解析HTML,残缺的标记不会报错
func ParseHTML(body []byte) (*html.Node, error) {
	return html.Parse(bytes.NewReader(body))
}

// LinksFromNode 按文档顺序遍历已解析的DOM,产出绝对链接
func LinksFromNode(root *html.Node, pageURL string) iter.Seq[string] {
	return func(yield func(string) bool) {
		base, err := url.Parse(pageURL)
		if err != nil {
			log.Debug().Err(err).Str("url", pageURL).Msg("页面URL无法解析")
			return
		}

		var walk func(n *html.Node) bool
		walk = func(n *html.Node) bool {
			if n.Type == html.ElementNode && n.Data == "a" {
				if href, ok := attrValue(n, "href"); ok {
					if link, ok := resolveHref(base, href); ok && !yield(link) {
						return false
					}
				}
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		walk(root)
	}
}

// resolveHref 过滤非页面链接,去掉片段并基于页面URL解析
func resolveHref(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	for _, prefix := range skippedHrefPrefixes {
		if strings.HasPrefix(href, prefix) {
			return "", false
		}
	}
	href, _, _ = strings.Cut(href, "#")

	abs, err := base.Parse(href)
	if err != nil {
		log.Debug().Err(err).Str("href", href).Msg("链接无法解析,已跳过")
		return "", false
	}
	return abs.String(), true
}

// attrValue 返回第一个同名属性的值
func attrValue(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// PageTitle 返回页面 <title> 的文本(去掉首尾空白)
func PageTitle(root *html.Node) string {
	doc := goquery.NewDocumentFromNode(root)
	return strings.TrimSpace(doc.Find("title").First().Text())
}
