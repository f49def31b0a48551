package directory_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/frahmantamala/ad-user-manager/internal/directory"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Account control", func() {
	DescribeTable("IsDisabled follows bit 0x2",
		func(uac int64, disabled bool) {
			Expect(directory.IsDisabled(uac)).To(Equal(disabled))
		},
		Entry("0", int64(0), false),
		Entry("2", int64(2), true),
		Entry("512 normal account", int64(512), false),
		Entry("514 disabled account", int64(514), true),
		Entry("66050 disabled, password never expires", int64(66050), true),
	)

	It("WithDisabled only touches the disable bit", func() {
		Expect(directory.WithDisabled(512, true)).To(Equal(int64(514)))
		Expect(directory.WithDisabled(514, false)).To(Equal(int64(512)))
		Expect(directory.WithDisabled(66050, false)).To(Equal(int64(66048)))
		Expect(directory.WithDisabled(514, true)).To(Equal(int64(514)))
	})

	It("ParseUAC rejects empty and malformed values", func() {
		v, ok := directory.ParseUAC(" 514 ")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(int64(514)))

		_, ok = directory.ParseUAC("")
		Expect(ok).To(BeFalse())
		_, ok = directory.ParseUAC("abc")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("EncodePassword", func() {
	It("quotes and encodes as UTF-16LE", func() {
		encoded, err := directory.EncodePassword("Ay1q2w3e!!")
		Expect(err).NotTo(HaveOccurred())
		Expect(encoded).To(HaveLen(2 * len(`"Ay1q2w3e!!"`)))
		Expect(encoded[:4]).To(Equal("\"\x00A\x00"))
		Expect(encoded[len(encoded)-2:]).To(Equal("\"\x00"))
	})

	It("encodes non-ASCII characters as single UTF-16 units", func() {
		encoded, err := directory.EncodePassword("ş")
		Expect(err).NotTo(HaveOccurred())
		Expect([]byte(encoded)).To(Equal([]byte{'"', 0, 0x5f, 0x01, '"', 0}))
	})
})

var _ = Describe("LoadTLSConfig", func() {
	var dir string

	writeCA := func(pemEncoded bool) (string, []byte) {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		Expect(err).NotTo(HaveOccurred())

		tmpl := &x509.Certificate{
			SerialNumber:          big.NewInt(1),
			Subject:               pkix.Name{CommonName: "Test CA"},
			NotBefore:             time.Now().Add(-time.Hour),
			NotAfter:              time.Now().Add(time.Hour),
			IsCA:                  true,
			BasicConstraintsValid: true,
			KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		}
		der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
		Expect(err).NotTo(HaveOccurred())

		raw := der
		if pemEncoded {
			raw = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
		}
		path := filepath.Join(dir, "ca.cer")
		Expect(os.WriteFile(path, raw, 0o600)).To(Succeed())
		return path, der
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("loads a PEM CA and keeps hostname verification on", func() {
		path, _ := writeCA(true)

		cfg, err := directory.LoadTLSConfig("ldaps://dc.example.com:636", path, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.RootCAs).NotTo(BeNil())
		Expect(cfg.ServerName).To(Equal("dc.example.com"))
		Expect(cfg.InsecureSkipVerify).To(BeFalse())
	})

	It("loads a DER CA and still verifies the chain when hostname checks are relaxed", func() {
		path, der := writeCA(false)

		cfg, err := directory.LoadTLSConfig("ldaps://10.0.0.5:636", path, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.InsecureSkipVerify).To(BeTrue())
		Expect(cfg.VerifyPeerCertificate).NotTo(BeNil())
		Expect(cfg.VerifyPeerCertificate([][]byte{der}, nil)).To(Succeed())
		Expect(cfg.VerifyPeerCertificate(nil, nil)).To(HaveOccurred())
	})

	It("fails when the CA file is missing", func() {
		_, err := directory.LoadTLSConfig("ldaps://dc.example.com", filepath.Join(dir, "missing.cer"), false)
		Expect(err).To(HaveOccurred())
	})
})
