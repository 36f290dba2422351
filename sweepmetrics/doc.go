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

// Package sweepmetrics turns a sweep.AtomicMetrics into a live dashboard
// feed: a background sampler keeps rolling rate buckets the way
// scm/metrics.go's initMetricsSampler keeps RPS/connection buckets, and a
// websocket endpoint pushes each sample to connected dashboards the way
// scm/network.go's "websocket" builtin drives a send/receive pair over one
// upgraded connection.
package sweepmetrics
