package store

import "fmt"

// Info mirrors the fields Redis's INFO replication section reports.
type Info struct {
	Role            string
	ReplID          string
	Offset          int64
	ConnectedSlaves int
}

// String renders the replication section exactly as the INFO command
// replies with it, field order included.
func (i Info) String() string {
	return fmt.Sprintf(
		"# Replication\nrole:%s\nmaster_replid:%s\nconnected_slaves:%d\nmaster_repl_offset:%d\n",
		i.Role, i.ReplID, i.ConnectedSlaves, i.Offset,
	)
}

// IsMaster reports whether this node acts as a replication master.
func (i Info) IsMaster() bool {
	return i.Role == "master"
}
