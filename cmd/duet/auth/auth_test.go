package authcmder_test

import (
	"bytes"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/duet/cmd/duet/auth"
	"github.com/papercomputeco/duet/pkg/credentials"
)

var _ = Describe("Auth Command", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	newCmd := func(stdin string, args ...string) *cobra.Command {
		cmd := authcmder.NewAuthCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .duet/ config directory")
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return cmd
	}

	storedKey := func(provider string) string {
		mgr, err := credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		key, err := mgr.GetKey(provider)
		Expect(err).NotTo(HaveOccurred())
		return key
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "auth-test-*")
		Expect(err).NotTo(HaveOccurred())
		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("NewAuthCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth [provider]"))
			Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
		})
	})

	Describe("storing a key", func() {
		It("reads the key from piped stdin", func() {
			Expect(newCmd("sk-piped\n", "openai").Execute()).To(Succeed())
			Expect(storedKey("openai")).To(Equal("sk-piped"))
			Expect(out.String()).To(ContainSubstring("Stored"))
		})

		It("normalizes the provider name", func() {
			Expect(newCmd("sk-piped\n", " OpenAI ").Execute()).To(Succeed())
			Expect(storedKey("openai")).To(Equal("sk-piped"))
		})

		It("rejects an empty key", func() {
			err := newCmd("   \n", "openai").Execute()
			Expect(err).To(MatchError(ContainSubstring("cannot be empty")))
		})

		It("rejects missing input", func() {
			err := newCmd("", "openai").Execute()
			Expect(err).To(MatchError(ContainSubstring("no input")))
		})

		It("rejects providers that take no key", func() {
			err := newCmd("sk\n", "ollama").Execute()
			Expect(err).To(MatchError(ContainSubstring("unsupported provider")))
		})

		It("requires a provider", func() {
			err := newCmd("sk\n").Execute()
			Expect(err).To(MatchError(ContainSubstring("provider argument required")))
		})
	})

	Describe("--list flag", func() {
		It("shows no credentials when none stored", func() {
			Expect(newCmd("", "--list").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No stored credentials"))
		})

		It("lists stored credentials", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())

			Expect(newCmd("", "--list").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("openai"))
			Expect(out.String()).To(ContainSubstring("OPENAI_API_KEY"))
			Expect(out.String()).NotTo(ContainSubstring("sk-test"))
		})
	})

	Describe("--remove flag", func() {
		It("removes stored credentials", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())

			Expect(newCmd("", "--remove", "openai").Execute()).To(Succeed())
			Expect(storedKey("openai")).To(BeEmpty())
		})
	})
})
