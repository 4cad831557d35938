package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteTokenGuide writes step-by-step instructions for obtaining a Reddit
// OAuth bearer token with a personal script app.
func WriteTokenGuide(w io.Writer) {
	rule := strings.Repeat("=", 80)

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "REDDIT ACCESS TOKEN GUIDE")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "redditsaver reads your saved items through oauth.reddit.com and needs a")
	fmt.Fprintln(w, "bearer token with the 'history', 'identity' and 'save' scopes.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 1: Create a script app")
	fmt.Fprintln(w, "   - Go to https://www.reddit.com/prefs/apps")
	fmt.Fprintln(w, "   - Click 'create another app...' and choose 'script'")
	fmt.Fprintln(w, "   - Use http://localhost:8080 as the redirect uri")
	fmt.Fprintln(w, "   - Note the client id (under the app name) and the secret")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 2: Request a token")
	fmt.Fprintln(w, "   curl -A 'linux:redditsaver:v0.3.0 (by u/<you>)' \\")
	fmt.Fprintln(w, "        -u '<client_id>:<secret>' \\")
	fmt.Fprintln(w, "        -d 'grant_type=password&username=<you>&password=<password>' \\")
	fmt.Fprintln(w, "        https://www.reddit.com/api/v1/access_token")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "   The response contains 'access_token' and 'expires_in' (seconds).")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 3: Store it")
	fmt.Fprintln(w, "   redditsaver auth login --username <you> --expires-in <expires_in>")
	fmt.Fprintln(w, "   and paste the token when prompted, or export it for one shell:")
	fmt.Fprintf(w, "   export %s=<access_token>\n", EnvAccessToken)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Tokens expire after about an hour. When a command reports an")
	fmt.Fprintln(w, "authentication error, request a new token and store it again.")
	fmt.Fprintln(w, "Never share your token or commit it to version control.")
	fmt.Fprintln(w, rule)
}
