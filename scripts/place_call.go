// Command place_call starts an outbound test call whose audio is streamed
// through the coachline voice webhook.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

func main() {
	accountSID := flag.String("account_sid", os.Getenv("TWILIO_ACCOUNT_SID"), "")
	authToken := flag.String("auth_token", os.Getenv("TWILIO_AUTH_TOKEN"), "")
	from := flag.String("from", "", "")
	to := flag.String("to", "", "")
	voiceURL := flag.String("voice_url", "", "public voice webhook URL")
	flag.Parse()

	if *from == "" || *to == "" || *voiceURL == "" {
		fmt.Println("usage: place_call -from=+123 -to=+456 -voice_url=https://host/voice")
		os.Exit(1)
	}
	if strings.TrimSpace(*accountSID) == "" || strings.TrimSpace(*authToken) == "" {
		fmt.Println("missing twilio credentials (TWILIO_ACCOUNT_SID / TWILIO_AUTH_TOKEN)")
		os.Exit(1)
	}

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: *accountSID,
		Password: *authToken,
	})
	params := &api.CreateCallParams{}
	params.SetTo(*to)
	params.SetFrom(*from)
	params.SetUrl(*voiceURL)

	resp, err := rest.Api.CreateCall(params)
	if err != nil {
		fmt.Println("call error:", err)
		os.Exit(1)
	}
	if resp.Sid != nil {
		fmt.Println("call started:", *resp.Sid)
	}
}
