package e2e_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/livedoc/livedoc/internal/logging"
)

var ctx context.Context

func TestE2E(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "E2E Suite")
}

var _ = BeforeSuite(func() {
	cfg := logging.DefaultConfig()
	cfg.Output = GinkgoWriter
	cfg.Level = logging.WarnLevel
	logging.Init(cfg)

	ctx = context.Background()
})
