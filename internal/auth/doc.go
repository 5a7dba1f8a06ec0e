// Package auth resolves a GitHub access token for the CLI.
//
// Resolution order:
//  1. the token override environment variable (GITHUB_TOKEN by default)
//  2. the cached token (file or OS keyring)
//  3. an interactive browser login, run at most once per process
//
// The interactive login never holds a client secret: an external broker issues the
// provider login URL and exchanges the authorization code, while a single-use local
// listener receives the provider's redirect.
//
//	resolver, _ := auth.NewResolver(store, coordinator)
//	token, err := resolver.Resolve(ctx)
//	if errors.Is(err, auth.ErrUnavailable) {
//		// ask the user to run `gitbruv auth login`
//	}
//
// Resolver also implements oauth2.TokenSource for use with oauth2.Transport.
package auth
