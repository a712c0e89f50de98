package gen

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("snowflake",
	fx.Provide(NewNode),
)

// NewNode provides the process-wide snowflake node. IDs are monotonic, which
// the ledger relies on for entry ordering.
func NewNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
