package crawlers

// NoResponse 表示请求没有拿到任何HTTP响应(连接失败、超时、DNS错误等)
const NoResponse = 0

// brokenStatusCodes 常见的失效状态码,仅用于日志分类;判定规则覆盖所有 >= 400
var brokenStatusCodes = map[int]struct{}{
	400: {}, 401: {}, 403: {}, 404: {}, 410: {},
	429: {}, 500: {}, 502: {}, 503: {}, 504: {},
}

// IsBroken 状态码是否视为失效
func IsBroken(status int) bool {
	if status == NoResponse {
		return true
	}
	if _, ok := brokenStatusCodes[status]; ok {
		return true
	}
	return status >= 400
}
