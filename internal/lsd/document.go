package lsd

import (
	"time"

	"github.com/Astemirdum/odl-service/internal/model"
)

const (
	RelSelf   = "self"
	RelReturn = "return"
)

type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

type PotentialRights struct {
	End *time.Time `json:"end,omitempty"`
}

// StatusDocument is a License Status Document as served by the remote
// distributor for one loan or hold.
type StatusDocument struct {
	Status          model.Status     `json:"status"`
	Message         string           `json:"message,omitempty"`
	PotentialRights *PotentialRights `json:"potential_rights,omitempty"`
	Links           []Link           `json:"links"`
}

// Link returns the href of the first link with the given rel.
func (d StatusDocument) Link(rel string) (string, bool) {
	for _, l := range d.Links {
		if l.Rel == rel {
			return l.Href, true
		}
	}
	return "", false
}

// RightsEnd is the remote's loan-period grant, when present.
func (d StatusDocument) RightsEnd() *time.Time {
	if d.PotentialRights == nil {
		return nil
	}
	return d.PotentialRights.End
}
