package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidateSiteURL checks that the public site base URL is usable as a
// redirect target for checkout and portal return flows. In production the
// URL must be https and must not point at localhost or a private address:
// Stripe redirects real browsers there, so an internal host means every
// checkout dead-ends after payment.
func ValidateSiteURL(rawURL string, production bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format")
	}

	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("URL scheme must be http or https")
	}

	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	if !production {
		return nil
	}

	if u.Scheme != "https" {
		return fmt.Errorf("URL must use https in production")
	}

	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("URL host %q is not reachable by customers", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		if err := checkPublicIP(ip); err != nil {
			return err
		}
	}

	return nil
}

func checkPublicIP(ip net.IP) error {
	if ip.IsLoopback() {
		return fmt.Errorf("loopback addresses are not reachable by customers")
	}
	if ip.IsPrivate() {
		return fmt.Errorf("private addresses are not reachable by customers")
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("link-local addresses are not reachable by customers")
	}
	if ip.IsUnspecified() {
		return fmt.Errorf("unspecified addresses are not reachable by customers")
	}
	return nil
}
