package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gitlab.com/kleefisch/pagepool/src/bufferpool"
	"gitlab.com/kleefisch/pagepool/src/config"
	"gitlab.com/kleefisch/pagepool/src/pagefile"
)

func strategyFromName(name string) (bufferpool.ReplacementStrategy, error) {
	switch strings.ToLower(name) {
	case "", "fifo":
		return bufferpool.FIFO, nil
	case "lru":
		return bufferpool.LRU, nil
	default:
		return 0, fmt.Errorf("unknown replacement strategy %q", name)
	}
}

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "pagepool.yaml", "path to pagepool YAML config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dataFile := cfg.Pool.DataFile
	if dataFile == "" {
		dataFile = "pagepool.page"
	}
	if _, err := os.Stat(dataFile); os.IsNotExist(err) {
		if err := pagefile.Create(dataFile); err != nil {
			log.Fatalf("create data file: %v", err)
		}
	}

	capacity := cfg.Pool.Capacity
	if capacity < 1 {
		capacity = 16
	}
	strategy, err := strategyFromName(cfg.Pool.Strategy)
	if err != nil {
		log.Fatalf("configure buffer pool: %v", err)
	}

	pool, err := bufferpool.Init(dataFile, capacity, strategy, cfg.Pool.StrategyData)
	if err != nil {
		log.Fatalf("init buffer pool: %v", err)
	}
	defer func() {
		if err := pool.Shutdown(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	h, err := pool.Pin(0)
	if err != nil {
		log.Fatalf("pin page 0: %v", err)
	}
	copy(h.Bytes(), []byte("pagepool driver smoke test"))
	if err := pool.MarkDirty(h); err != nil {
		log.Fatalf("mark dirty: %v", err)
	}
	if err := pool.Unpin(h); err != nil {
		log.Fatalf("unpin page 0: %v", err)
	}
	if err := pool.ForceFlush(); err != nil {
		log.Fatalf("force flush: %v", err)
	}

	fmt.Printf("frames: %v read_io=%d write_io=%d\n",
		pool.FrameContents(), pool.NumReadIO(), pool.NumWriteIO())
}
