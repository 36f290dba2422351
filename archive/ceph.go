//go:build ceph

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

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/ceph/go-ceph/rados"
)

// CephFactory builds archivers that write archived snapshots as RADOS
// objects, one pool shared across every named archive under distinct
// prefixes — isolated behind this build tag so a default build never
// needs librados installed, the same split persistence-ceph.go uses.
type CephFactory struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
	Prefix      string
}

func (f *CephFactory) CreateArchiver(name string) Archiver {
	pfx := path.Join(f.Prefix, name)
	return &CephArchiver{factory: f, prefix: pfx}
}

type CephArchiver struct {
	factory *CephFactory
	prefix  string

	mu     sync.Mutex
	conn   *rados.Conn
	ioctx  *rados.IOContext
	opened bool
}

func (a *CephArchiver) ensureOpen() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.opened {
		return nil
	}

	conn, err := rados.NewConnWithClusterAndUser(a.factory.ClusterName, a.factory.UserName)
	if err != nil {
		return fmt.Errorf("archive: ceph: connect: %w", err)
	}
	if a.factory.ConfFile != "" {
		if err := conn.ReadConfigFile(a.factory.ConfFile); err != nil {
			return fmt.Errorf("archive: ceph: read config: %w", err)
		}
	} else {
		_ = conn.ReadDefaultConfigFile()
	}
	if err := conn.Connect(); err != nil {
		return fmt.Errorf("archive: ceph: connect: %w", err)
	}
	ioctx, err := conn.OpenIOContext(a.factory.Pool)
	if err != nil {
		conn.Shutdown()
		return fmt.Errorf("archive: ceph: open pool %q: %w", a.factory.Pool, err)
	}

	a.conn = conn
	a.ioctx = ioctx
	a.opened = true
	return nil
}

func (a *CephArchiver) obj(snap Snapshot) string {
	return path.Join(a.prefix, fmt.Sprintf("shard-%d", snap.Shard), snap.Strategy, fmt.Sprintf("partition-%d.json", snap.FinePartition))
}

func (a *CephArchiver) Archive(ctx context.Context, snap Snapshot) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("archive: ceph: marshal snapshot: %w", err)
	}
	if err := a.ioctx.WriteFull(a.obj(snap), body); err != nil {
		return fmt.Errorf("archive: ceph: write: %w", err)
	}
	return nil
}

func init() {
	BackendRegistry["ceph"] = func(settings map[string]string) (Factory, error) {
		f := &CephFactory{
			UserName:    settings["username"],
			ClusterName: settings["cluster"],
			ConfFile:    settings["conf_file"],
			Pool:        settings["pool"],
			Prefix:      settings["prefix"],
		}
		if f.Pool == "" {
			return nil, fmt.Errorf("archive: ceph: missing required setting %q", "pool")
		}
		return f, nil
	}
}
