package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixSyncReport CachePrefix = "SYNC_LAST_REPORT"
	CachePrefixSyncLock   CachePrefix = "SYNC_RUN_LOCK"
)
