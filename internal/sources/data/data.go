// Package data embeds the sample fare feed served by the fixture source.
package data

import _ "embed"

//go:embed fare_feed.json
var FareFeed []byte
