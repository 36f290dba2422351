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

import "context"

// Noop discards every snapshot — the default when no archive backend is
// configured.
type Noop struct{}

func (Noop) Archive(ctx context.Context, snap Snapshot) error { return nil }

type noopFactory struct{}

func (noopFactory) CreateArchiver(name string) Archiver { return Noop{} }

func init() {
	BackendRegistry["noop"] = func(settings map[string]string) (Factory, error) {
		return noopFactory{}, nil
	}
}
