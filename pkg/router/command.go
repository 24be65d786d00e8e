package router

import (
	"regexp"
	"strconv"
)

// Kind is the closed set of things an inbound message can ask for.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindLocation
	KindVenue
	KindTips
)

func (k Kind) String() string {
	switch k {
	case KindLocation:
		return "location"
	case KindVenue:
		return "venue"
	case KindTips:
		return "tips"
	default:
		return "unrecognized"
	}
}

// Command is the classification of one message, computed once before dispatch.
//
// Index is the 1-based display position for KindVenue and KindTips and is
// not bounds checked here.
type Command struct {
	Kind  Kind
	Index int
	Lat   float64
	Lng   float64
}

var (
	venuePattern = regexp.MustCompile(`/venue(\d+)`)
	tipsPattern  = regexp.MustCompile(`/tips(\d+)`)
)

// Classify picks the single handler a message routes to.
//
// A location wins over text; /venueN is checked before /tipsN.
func Classify(msg InboundMessage) Command {
	if msg.Location != nil {
		return Command{Kind: KindLocation, Lat: msg.Location.Latitude, Lng: msg.Location.Longitude}
	}
	if msg.Text == "" {
		return Command{Kind: KindUnrecognized}
	}

	if match := venuePattern.FindStringSubmatch(msg.Text); match != nil {
		return Command{Kind: KindVenue, Index: parseIndex(match[1])}
	}
	if match := tipsPattern.FindStringSubmatch(msg.Text); match != nil {
		return Command{Kind: KindTips, Index: parseIndex(match[1])}
	}

	return Command{Kind: KindUnrecognized}
}

// parseIndex maps overflowing digit runs to 0, which no result resolves.
func parseIndex(digits string) int {
	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}

	return index
}
