package cloud

import (
	"context"

	"github.com/carbocation/pfx"
	"google.golang.org/api/option"
)

// Clients bundles the cloud services a run may use. Either field may be nil
// when the corresponding feature is not configured.
type Clients struct {
	Storage *Storage
	Status  *StatusTable
}

// StatusConfig locates a status table.
type StatusConfig struct {
	Project, Dataset, Table string
	UserID, JobID           string
	Workflow                string
}

// Connect builds the clients a run needs: storage when useStorage is set and
// a status table when status names one.
func Connect(ctx context.Context, useStorage bool, status StatusConfig, opts ...option.ClientOption) (*Clients, error) {
	c := &Clients{}

	if useStorage {
		s, err := NewStorage(ctx, opts...)
		if err != nil {
			return nil, err
		}
		c.Storage = s
	}

	if status.Project != "" && status.Dataset != "" && status.Table != "" {
		st, err := NewStatusTable(ctx, status.Project, status.Dataset, status.Table, opts...)
		if err != nil {
			c.Close()
			return nil, err
		}
		st.UserID, st.JobID = status.UserID, status.JobID
		if status.Workflow != "" {
			st.Workflow = status.Workflow
		}
		c.Status = st
	}

	return c, nil
}

// StorageClient returns the storage wrapper, or nil.
func (c *Clients) StorageClient() *Storage {
	if c == nil {
		return nil
	}

	return c.Storage
}

// StatusTable returns the status table, or nil.
func (c *Clients) StatusTable() *StatusTable {
	if c == nil {
		return nil
	}

	return c.Status
}

func (c *Clients) Close() error {
	if c == nil {
		return nil
	}

	var first error
	if err := c.Storage.Close(); err != nil {
		first = err
	}
	if err := c.Status.Close(); err != nil && first == nil {
		first = err
	}

	return pfx.Err(first)
}
