// Package config describes how a strata database is opened: which storage
// backend, where index relations live, and the tuning of the latest index
// and the lease lock.
//
// A Config is built with NewConfig and functional options, or read with
// Load from a YAML file. Load applies environment overrides after the file:
//
//	FILE_SYSTEM_TYPE      localfs | weedfs
//	LOCAL_BASE_FOLDER     local root directory
//	WEEDFS_FILER_URL      filer base URL
//	WEEDFS_BASE_FOLDER    filer root directory
//	PATH_SEPERATOR        record path separator
//	MAX_LATEST_COUNT      latest index bound
//	STRATA_INDEX_BACKEND  path | badger
//	STRATA_INDEX_DIR      badger directory
//	STRATA_LANGUAGE       stop-word language
//	STRATA_LEGACY_LOAD    load untagged records
//	STRATA_LOCK_TIMEOUT   lease staleness timeout
//	STRATA_METRICS        instrument the backend
package config
