package machine

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DecodeProfile reads a JSON profile from r. Fields absent from the
// document keep their DefaultProfile values; unknown fields are rejected.
func DecodeProfile(r io.Reader) (Profile, error) {
	p := DefaultProfile()
	if err := decodeStrict(r, &p); err != nil {
		return Profile{}, errors.Wrap(err, "decode profile")
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// LoadProfile reads a JSON profile file.
func LoadProfile(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, errors.Wrapf(err, "read profile %s", path)
	}
	p, err := DecodeProfile(bytes.NewReader(raw))
	if err != nil {
		return Profile{}, errors.Wrapf(err, "load profile %s", path)
	}
	return p, nil
}

// DecodeEnvelope reads a JSON envelope from r.
func DecodeEnvelope(r io.Reader) (Envelope, error) {
	var e Envelope
	if err := decodeStrict(r, &e); err != nil {
		return Envelope{}, errors.Wrap(err, "decode envelope")
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

// LoadEnvelope reads a JSON envelope file.
func LoadEnvelope(path string) (Envelope, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "read envelope %s", path)
	}
	e, err := DecodeEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Envelope{}, errors.Wrapf(err, "load envelope %s", path)
	}
	return e, nil
}

func decodeStrict(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
