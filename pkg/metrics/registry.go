// Package metrics holds the Prometheus collectors of both services. Each
// service registers only the groups it exercises.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "triage"

// Group is a set of collectors registered together.
type Group []prometheus.Collector

// Register adds every collector of groups to reg. Collectors shared by two
// groups are registered once.
func Register(reg prometheus.Registerer, groups ...Group) error {
	for _, g := range groups {
		for _, c := range g {
			if err := reg.Register(c); err != nil {
				var already prometheus.AlreadyRegisteredError
				if errors.As(err, &already) {
					continue
				}
				return err
			}
		}
	}
	return nil
}

// MustRegister registers groups on the default registry.
func MustRegister(groups ...Group) {
	if err := Register(prometheus.DefaultRegisterer, groups...); err != nil {
		panic(err)
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
