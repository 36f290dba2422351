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

package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/dc0d/onexit"
	"github.com/fsnotify/fsnotify"
)

// Watch starts reloading path into store whenever the file changes on
// disk, returning a stop function. A failed reload is logged and the
// previous settings are kept in effect — sweepd never runs with partially
// parsed settings.
func Watch(path string, store *Store) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				next, err := Load(path)
				if err != nil {
					log.Printf("config: reload %s failed, keeping previous settings: %v", path, err)
					continue
				}
				store.set(next)
				log.Printf("config: reloaded %s", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config: watcher error: %v", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	stopFn := func() {
		once.Do(func() {
			close(done)
			watcher.Close()
		})
	}
	onexit.Register(stopFn)

	return stopFn, nil
}
