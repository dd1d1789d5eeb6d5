package services

import (
	"github.com/f3nation/f3map/modules/org/domain/event"
	"github.com/f3nation/f3map/modules/org/domain/location"
	"github.com/f3nation/f3map/modules/org/domain/org"
)

// The views below expose stored entities under the field names that edit
// payloads use, so a change set can be merge-patched onto them directly.

type eventView struct {
	EventName        string         `json:"eventName"`
	EventDescription string         `json:"eventDescription"`
	EventDayOfWeek   string         `json:"eventDayOfWeek"`
	EventStartTime   string         `json:"eventStartTime"`
	EventEndTime     string         `json:"eventEndTime"`
	EventTypeIDs     []int64        `json:"eventTypeIds"`
	EventMeta        map[string]any `json:"eventMeta"`
}

func eventViewOf(ev *event.Event) eventView {
	return eventView{
		EventName:        ev.Name,
		EventDescription: ev.Description,
		EventDayOfWeek:   ev.DayOfWeek,
		EventStartTime:   ev.StartTime,
		EventEndTime:     ev.EndTime,
		EventTypeIDs:     ev.EventTypeIDs,
		EventMeta:        ev.Meta,
	}
}

func (v eventView) applyTo(ev *event.Event) {
	ev.Name = v.EventName
	ev.Description = v.EventDescription
	ev.DayOfWeek = v.EventDayOfWeek
	ev.StartTime = v.EventStartTime
	ev.EndTime = v.EventEndTime
	ev.EventTypeIDs = v.EventTypeIDs
	ev.Meta = v.EventMeta
}

type aoLocationView struct {
	AOName              string  `json:"aoName"`
	AODescription       string  `json:"aoDescription"`
	AOWebsite           string  `json:"aoWebsite"`
	AOLogo              string  `json:"aoLogo"`
	LocationName        string  `json:"locationName"`
	LocationDescription string  `json:"locationDescription"`
	LocationLat         float64 `json:"locationLat"`
	LocationLng         float64 `json:"locationLng"`
	LocationAddress     string  `json:"locationAddress"`
	LocationAddress2    string  `json:"locationAddress2"`
	LocationCity        string  `json:"locationCity"`
	LocationState       string  `json:"locationState"`
	LocationZip         string  `json:"locationZip"`
	LocationCountry     string  `json:"locationCountry"`
}

func aoLocationViewOf(ao *org.Node, loc *location.Location) aoLocationView {
	return aoLocationView{
		AOName:              ao.Name,
		AODescription:       ao.Description,
		AOWebsite:           ao.Website,
		AOLogo:              ao.Logo,
		LocationName:        loc.Name,
		LocationDescription: loc.Description,
		LocationLat:         loc.Lat,
		LocationLng:         loc.Lng,
		LocationAddress:     loc.AddressStreet,
		LocationAddress2:    loc.AddressStreet2,
		LocationCity:        loc.AddressCity,
		LocationState:       loc.AddressState,
		LocationZip:         loc.AddressZip,
		LocationCountry:     loc.AddressCountry,
	}
}

func (v aoLocationView) applyTo(ao *org.Node, loc *location.Location) {
	ao.Name = v.AOName
	ao.Description = v.AODescription
	ao.Website = v.AOWebsite
	ao.Logo = v.AOLogo
	loc.Name = v.LocationName
	loc.Description = v.LocationDescription
	loc.Lat = v.LocationLat
	loc.Lng = v.LocationLng
	loc.AddressStreet = v.LocationAddress
	loc.AddressStreet2 = v.LocationAddress2
	loc.AddressCity = v.LocationCity
	loc.AddressState = v.LocationState
	loc.AddressZip = v.LocationZip
	loc.AddressCountry = v.LocationCountry
}

type orgView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

func orgViewOf(n *org.Node) orgView {
	return orgView{Name: n.Name, Description: n.Description, Website: n.Website}
}

func (v orgView) applyTo(n *org.Node) {
	n.Name = v.Name
	n.Description = v.Description
	n.Website = v.Website
}
