package utilities

import (
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/caarlos0/env/v11"
	"github.com/segmentio/ksuid"
)

type idConfig struct {
	SnowflakeNode int64 `env:"SNOWFLAKE_NODE" envDefault:"1"`
}

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewKSUID generates a new globally unique KSUID string.
// KSUIDs sort by creation time, which orders and upload names rely on.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewSnowflakeID generates a snowflake ID string using the node ID in
// SNOWFLAKE_NODE (default 1). The node is created once per process so the
// per-millisecond sequence is shared by all callers.
// If node setup fails it falls back to a KSUID string.
func NewSnowflakeID() string {
	nodeOnce.Do(func() {
		cfg, err := env.ParseAs[idConfig]()
		if err != nil {
			cfg.SnowflakeNode = 1
		}
		node, _ = snowflake.NewNode(cfg.SnowflakeNode)
	})
	if node == nil {
		return NewKSUID()
	}
	return node.Generate().String()
}
