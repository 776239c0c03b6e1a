package utils

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	nodeMu sync.Mutex
	node   *snowflake.Node
)

// ==================== ORDER ID ====================

// InitIDNode sets the snowflake node used for booking references. Each
// running instance needs its own node id (0-1023).
func InitIDNode(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("init snowflake node %d: %w", nodeID, err)
	}

	nodeMu.Lock()
	node = n
	nodeMu.Unlock()
	return nil
}

// GenerateOrderID returns a customer-facing booking reference.
// Format: BOOK-<base36 snowflake>
func GenerateOrderID() string {
	nodeMu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(0)
	}
	n := node
	nodeMu.Unlock()

	return "BOOK-" + strings.ToUpper(n.Generate().Base36())
}
