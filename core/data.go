package core

var (
	RunMode  string // crawl / serve / cron
	StartAt  int64  // start timestamp(13 digits) 启动时间，13位时间戳
	Version  = "v0.2.1"
	DataDir  string // base dir for snapshot csv files 快照CSV文件根目录
	LiveMode bool   // true when running under the in-process scheduler

	ExitCalls []func() // callbacks to run before process exit 停止执行的回调
)

const (
	RunModeCrawl = "crawl"
	RunModeServe = "serve"
	RunModeCron  = "cron"
)

// Markets 市场
const (
	MarketCN = "cn"
	MarketHK = "hk"
	MarketUS = "us"
)

// Granularities 存储粒度
const (
	GranDay    = "day"
	GranMinute = "minute"
)

const (
	DefaultDateFmt = "2006-01-02 15:04:05"
	DateFmt        = "2006-01-02"

	// BatchSizeCN is shared by the cn/hk sinks; the us feeds return far
	// smaller pages so their sink batch stays at 100.
	BatchSizeCN = 1000
	BatchSizeUS = 100

	DefRetryNum   = 3 // default fetch retries 默认重试次数
	DefRetryWaitS = 2 // seconds between retries 重试间隔(秒)
	DayRetryNum   = 5 // day-bar drivers retry harder 日线驱动重试次数
	DayRetryWaitS = 3
	DayBackDays   = 365 // day-bar backfill window 日线回补窗口(天)

	ListQueryLimit = 100 // max rows for the code list endpoint
)

const (
	TZShanghai = "Asia/Shanghai"
	TZNewYork  = "America/New_York"
)

func MarketTZ(market string) string {
	if market == MarketUS {
		return TZNewYork
	}
	return TZShanghai
}

// Error codes, grouped roughly by subsystem. 错误码
const (
	ErrBadConfig = -(iota + 100)
	ErrNetReadFail
	ErrNonDataResponse
	ErrEmptyResult
	ErrNormalize
	ErrCoerce
	ErrDbConnFail
	ErrDbReadFail
	ErrDbExecFail
	ErrIOReadFail
	ErrIOWriteFail
	ErrRunTime
)
