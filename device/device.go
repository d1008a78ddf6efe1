package device

import (
	"fmt"

	"github.com/notargets/gocca"
	"github.com/sirupsen/logrus"
)

var defaultBackends = []string{
	`{"mode": "OpenMP"}`,
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "Serial"}`,
}

// NewDevice opens the first OCCA backend that initializes. With no modes it
// prefers OpenMP, then CUDA, then Serial. Modes are OCCA mode names such as
// "OpenMP" or full JSON property strings.
func NewDevice(modes ...string) (device *gocca.OCCADevice, err error) {
	backends := defaultBackends
	if len(modes) > 0 {
		backends = make([]string, len(modes))
		for i, m := range modes {
			if len(m) > 0 && m[0] == '{' {
				backends[i] = m
			} else {
				backends[i] = fmt.Sprintf(`{"mode": "%s"}`, m)
			}
		}
	}
	for _, props := range backends {
		if device, err = gocca.NewDevice(props); err == nil {
			logrus.WithField("mode", device.Mode()).Debug("created OCCA device")
			return
		}
	}
	return nil, fmt.Errorf("no OCCA backend available from %v: %w", backends, err)
}

// buildKernel compiles src. OpenMP does not get -O3 by default.
func buildKernel(device *gocca.OCCADevice, src, name string) (kernel *gocca.OCCAKernel, err error) {
	if device.Mode() == "OpenMP" {
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = device.BuildKernelFromString(src, name, props)
	} else {
		kernel, err = device.BuildKernelFromString(src, name, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", name, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", name)
	}
	return
}
