/*
 * This file is part of Radiance.
 *
 * Radiance is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * Radiance is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with Radiance.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package collectors holds the two prometheus.Collector implementations
// exposed by the tracker's /metrics endpoint: NormalCollector (public,
// unauthenticated swarm-size gauges) and AdminCollector (bearer-token
// gated, operational internals).
package collectors

import "github.com/prometheus/client_golang/prometheus"

type NormalCollector struct {
	uptimeMetric   *prometheus.Desc
	usersMetric    *prometheus.Desc
	torrentsMetric *prometheus.Desc
	peersMetric    *prometheus.Desc
	seedersMetric  *prometheus.Desc
	leechersMetric *prometheus.Desc
	requestsMetric *prometheus.Desc

	uptime   float64
	users    int
	torrents int
	seeders  int
	leechers int
	requests uint64
}

func NewNormalCollector() *NormalCollector {
	return &NormalCollector{
		uptimeMetric:   prometheus.NewDesc("radiance_uptime", "System uptime in seconds", nil, nil),
		usersMetric:    prometheus.NewDesc("radiance_users", "Number of active users in the swarm", nil, nil),
		torrentsMetric: prometheus.NewDesc("radiance_torrents", "Number of torrents currently tracked", nil, nil),
		peersMetric:    prometheus.NewDesc("radiance_peers", "Number of peers currently tracked", nil, nil),
		seedersMetric:  prometheus.NewDesc("radiance_seeders", "Number of seeding peers currently tracked", nil, nil),
		leechersMetric: prometheus.NewDesc("radiance_leechers", "Number of leeching peers currently tracked", nil, nil),
		requestsMetric: prometheus.NewDesc("radiance_requests", "Number of requests handled", nil, nil),
	}
}

func (c *NormalCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.uptimeMetric
	ch <- c.usersMetric
	ch <- c.torrentsMetric
	ch <- c.peersMetric
	ch <- c.seedersMetric
	ch <- c.leechersMetric
	ch <- c.requestsMetric
}

func (c *NormalCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.uptimeMetric, prometheus.CounterValue, c.uptime)
	ch <- prometheus.MustNewConstMetric(c.usersMetric, prometheus.GaugeValue, float64(c.users))
	ch <- prometheus.MustNewConstMetric(c.torrentsMetric, prometheus.GaugeValue, float64(c.torrents))
	ch <- prometheus.MustNewConstMetric(c.peersMetric, prometheus.GaugeValue, float64(c.seeders+c.leechers))
	ch <- prometheus.MustNewConstMetric(c.seedersMetric, prometheus.GaugeValue, float64(c.seeders))
	ch <- prometheus.MustNewConstMetric(c.leechersMetric, prometheus.GaugeValue, float64(c.leechers))
	ch <- prometheus.MustNewConstMetric(c.requestsMetric, prometheus.CounterValue, float64(c.requests))
}

func (c *NormalCollector) Update(uptime float64, users, torrents, seeders, leechers int, requests uint64) {
	c.uptime = uptime
	c.users = users
	c.torrents = torrents
	c.seeders = seeders
	c.leechers = leechers
	c.requests = requests
}
