package flags

import (
	"time"

	"gopkg.in/urfave/cli.v1"
)

// OracleFlags covers the participant's identity and loop cadence.

func OracleFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "oracle.pubkey",
			Usage: "Compressed public key of this oracle (hex, 33 bytes)",
		},
		cli.StringFlag{
			Name:  "oracle.rules",
			Usage: "Pool deployment preset to run against",
			Value: "test",
		},
		cli.DurationFlag{
			Name:  "oracle.interval",
			Usage: "Delay between participant ticks",
			Value: 30 * time.Second,
		},
	}
}

// FeedFlags isolates price-source tuning knobs.
func FeedFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "feed.kind",
			Usage: "Price source kind (http|command)",
			Value: "http",
		},
		cli.StringFlag{
			Name:  "feed.url",
			Usage: "URL of the JSON price API",
		},
		cli.StringFlag{
			Name:  "feed.path",
			Usage: "Dotted field path to the quote inside the API response",
		},
		cli.Float64Flag{
			Name:  "feed.scale",
			Usage: "Multiplier applied to the raw quote",
		},
		cli.BoolFlag{
			Name:  "feed.invert",
			Usage: "Publish scale/quote instead of quote*scale",
		},
		cli.StringFlag{
			Name:  "feed.command",
			Usage: "Shell command printing the price (feed.kind=command)",
		},
		cli.Int64Flag{
			Name:  "feed.maxprice",
			Usage: "Reject fetched prices above this value (0 disables)",
		},
		cli.DurationFlag{
			Name:  "feed.timeout",
			Usage: "Timeout for one price fetch",
			Value: 10 * time.Second,
		},
	}
}
