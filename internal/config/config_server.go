package config

import (
	"flag"
	"log"
	"os"
	"strconv"
)

// NewServerConfig creates and returns a new ServerConfig by parsing flags and environment variables.
func NewServerConfig() *ServerConfig {
	// 0) defaults
	cfg := &ServerConfig{
		Addr:            "localhost:8080",
		StoreInterval:   300,
		FileStoragePath: "./tmp/metrics-state.json",
		Restore:         true,
		LogLevel:        "info",
	}

	// 1) flags
	var fAddr strFlag
	fAddr.v = cfg.Addr
	var fStoreI intFlag
	fStoreI.v = cfg.StoreInterval
	var fFile strFlag
	fFile.v = cfg.FileStoragePath
	var fRestore boolFlag
	fRestore.v = cfg.Restore
	var fLevel strFlag
	fLevel.v = cfg.LogLevel
	var fKey strFlag
	var fConf strFlag // -c / -config

	flag.Var(&fAddr, "a", "HTTP server address")
	flag.Var(&fStoreI, "i", "store interval (seconds)")
	flag.Var(&fFile, "f", "path to state snapshot file")
	flag.Var(&fRestore, "r", "restore from file")
	flag.Var(&fKey, "k", "Hash key string")
	flag.Var(&fLevel, "l", "log level")
	flag.Var(&fConf, "c", "Path to JSON config file")
	flag.Var(&fConf, "config", "Path to JSON config file (alias)")
	flag.Parse()

	cfg.Addr = fAddr.v
	cfg.StoreInterval = fStoreI.v
	cfg.FileStoragePath = fFile.v
	cfg.Restore = fRestore.v
	cfg.Key = fKey.v
	cfg.LogLevel = fLevel.v

	// 2) JSON (below flags)
	if fConf.v == "" {
		if v := os.Getenv("CONFIG"); v != "" {
			fConf.v = v
		}
	}

	if fConf.v != "" {
		if js, err := loadServerJSON(fConf.v); err == nil {
			applyServerJSON(cfg, js, serverFlagsSet{
				addr:     fAddr.set,
				restore:  fRestore.set,
				interval: fStoreI.set,
				file:     fFile.set,
				key:      fKey.set,
				level:    fLevel.set,
			})
		} else {
			log.Printf("failed to load config %s: %v", fConf.v, err)
		}
	}

	// 3) env
	readServerEnvironment(cfg)

	cfg.Logger = newLogger(cfg.LogLevel)
	return cfg
}

type serverFlagsSet struct {
	addr, restore, interval, file, key, level bool
}

func applyServerJSON(cfg *ServerConfig, js *serverJSON, set serverFlagsSet) {
	if js.Address != nil && !set.addr {
		cfg.Addr = *js.Address
	}
	if js.Restore != nil && !set.restore {
		cfg.Restore = *js.Restore
	}
	if js.StoreInterval != nil && !set.interval {
		if sec, err := parseDurationSeconds(*js.StoreInterval); err == nil {
			cfg.StoreInterval = sec
		} else {
			log.Printf("invalid store_interval in config: %v", err)
		}
	}
	if js.StoreFile != nil && !set.file {
		cfg.FileStoragePath = *js.StoreFile
	}
	if js.Key != nil && !set.key {
		cfg.Key = *js.Key
	}
	if js.LogLevel != nil && !set.level {
		cfg.LogLevel = *js.LogLevel
	}
}

func readServerEnvironment(cfg *ServerConfig) {
	if addr := os.Getenv("ADDRESS"); addr != "" {
		cfg.Addr = addr
	}

	storeIntervalEnv := os.Getenv("STORE_INTERVAL")
	if storeIntervalEnv != "" {
		v, err := strconv.Atoi(storeIntervalEnv)
		if err == nil {
			cfg.StoreInterval = v
		} else {
			log.Printf("invalid STORE_INTERVAL env var: %v", err)
		}
	}

	if fsp := os.Getenv("FILE_STORAGE_PATH"); fsp != "" {
		cfg.FileStoragePath = fsp
	} else if fsp := os.Getenv("STORE_FILE"); fsp != "" {
		cfg.FileStoragePath = fsp
	}

	restoreEnv := os.Getenv("RESTORE")
	if restoreEnv != "" {
		v, err := strconv.ParseBool(restoreEnv)
		if err == nil {
			cfg.Restore = v
		} else {
			log.Printf("invalid RESTORE env var: %v", err)
		}
	}

	if key := os.Getenv("KEY"); key != "" {
		cfg.Key = key
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
}
