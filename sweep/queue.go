/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package sweep

import (
	"github.com/launix-de/sweepcells/kv"
)

// QueueTable is the default table name the queue's own rows live under,
// distinct from any user table it tracks writes for.
const QueueTable = "sweep.queue"

// Queue is a SweepableCells instance bound to one backing kv.Store and
// kv.TransactionTable, for one fixed shard count. Safe for concurrent use:
// a Queue holds no lock and none of its methods modify it, so no lock is
// ever held across a kv.Store call (see doc.go, §5).
type Queue struct {
	store     kv.Store
	txns      kv.TransactionTable
	cfg       Config
	part      Partitioner
	metrics   Metrics
	numShards uint32
	table     string
}

// NewQueue builds a Queue. cfg is validated; a nil metrics uses a no-op
// implementation so callers that don't care about instrumentation don't
// have to supply one.
func NewQueue(store kv.Store, txns kv.TransactionTable, cfg Config, metrics Metrics) (*Queue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Queue{
		store:     store,
		txns:      txns,
		cfg:       cfg,
		part:      NewPartitioner(cfg),
		metrics:   metrics,
		numShards: cfg.DefaultShards,
		table:     QueueTable,
	}, nil
}

// WithTable returns a copy of the Queue bound to a different underlying
// table name — used by tests that want isolated queues inside one Store.
func (q *Queue) WithTable(table string) *Queue {
	cp := *q
	cp.table = table
	return &cp
}
