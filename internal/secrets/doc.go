// Package secrets rejects candidates that carry credentials.
//
// A Detector scans text with the gitleaks default rule set. Rule wraps a
// Detector as a redflag.Rule, so a leaked API key or private key in a sampled
// output is discarded before it can vote:
//
//	d, err := secrets.NewDetector(allow)
//	if err != nil {
//	    return err
//	}
//	f := redflag.NewFilter(secrets.NewRule(d))
//
// Findings never carry the matched secret, only its rule and position.
package secrets
