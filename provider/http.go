// Package provider talks to the upstream market feeds and turns their
// responses into raw frames. Providers never retry; the fetch controller
// owns retry and fallback policy.
package provider

import (
	"io"
	"net/http"
	"time"

	"stockdata/core"
	"stockdata/errs"
	"stockdata/fetch"
	"stockdata/log"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

var client = &http.Client{Timeout: 15 * time.Second}

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

type HttpRes struct {
	Status  int
	Headers http.Header
	Content string
	Error   *errs.Error
}

func DoHttp(req *http.Request) *HttpRes {
	rsp, err_ := client.Do(req)
	if err_ != nil {
		return &HttpRes{Error: errs.New(core.ErrNetReadFail, err_)}
	}
	defer rsp.Body.Close()
	var result = HttpRes{Status: rsp.StatusCode, Headers: rsp.Header}
	rspData, err_ := io.ReadAll(rsp.Body)
	if err_ != nil {
		result.Error = errs.New(core.ErrNetReadFail, err_)
		return &result
	}
	result.Content = string(rspData)
	cutLen := min(len(result.Content), 3000)
	log.Debug("rsp", zap.String("url", req.URL.String()), zap.Int("status", result.Status),
		zap.Int("len", len(result.Content)), zap.String("body", result.Content[:cutLen]))
	if result.Status >= 400 {
		result.Error = errs.NewMsg(core.ErrNetReadFail, "%s  status %d", req.URL, result.Status)
	}
	return &result
}

// GetText fetches a url and returns the body as utf-8 text. Feeds that
// still serve GBK set gbk. A markup body where data was expected is
// surfaced as its own error code so the controller can log rate
// limiting distinctly.
func GetText(url, referer string, gbk bool) (string, *errs.Error) {
	req, err_ := http.NewRequest(http.MethodGet, url, nil)
	if err_ != nil {
		return "", errs.New(core.ErrRunTime, err_)
	}
	req.Header.Set("User-Agent", userAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	res := DoHttp(req)
	if res.Error != nil {
		return "", res.Error
	}
	body := res.Content
	if gbk {
		decoded, _, err_ := transform.String(simplifiedchinese.GBK.NewDecoder(), body)
		if err_ != nil {
			return "", errs.New(core.ErrNetReadFail, err_)
		}
		body = decoded
	}
	if fetch.IsMarkup(body) {
		return "", errs.NewMsg(core.ErrNonDataResponse, "markup response from %s", url)
	}
	return body, nil
}
