package constants

// Source tags stored in the source column of each synced table
const (
	SourceNPSTrails     = "nps_trails"
	SourceOpenBreweryDB = "open_brewery_db"
)

// NPSExternalIDPrefix prefixes the NPS OBJECTID to build trail external ids
const NPSExternalIDPrefix = "nps_"

// Sync triggers recorded on each run report
const (
	SyncTriggerScheduled = "scheduled"
	SyncTriggerOnDemand  = "on_demand"
	SyncTriggerCLI       = "cli"
)

// Job names used for metrics and logging
const (
	JobNameTrailSync   = "trail_sync"
	JobNameBrewerySync = "brewery_sync"
	JobNameSyncAll     = "sync_all"
)
