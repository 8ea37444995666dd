package crawlers

import "net/url"

// InScope 判断链接是否属于起始站点
// 相对链接(没有authority)视为站内;否则authority必须与baseHost完全一致(区分大小写,含端口)
// 无法解析的链接一律视为站外
func InScope(raw, baseHost string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	authority := Authority(u)
	return authority == "" || authority == baseHost
}

// Authority 返回 [userinfo@]host[:port]
func Authority(u *url.URL) string {
	if u.User != nil {
		return u.User.String() + "@" + u.Host
	}
	return u.Host
}
