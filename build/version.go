package build

import (
	classyversion "go.szostok.io/version"
)

// Version returns the version string shown by `delivery-sugar --version`.
// It includes the full build info as JSON so that bug reports carry the commit and build date.
func Version() string {
	v := classyversion.Get()

	jsonVer, err := v.MarshalJSON()
	if err != nil {
		return v.Version
	}

	return v.Version + " " + string(jsonVer)
}

// UserAgent is sent along with Chef Server requests.
func UserAgent() string {
	return "delivery-sugar/" + classyversion.Get().Version
}
