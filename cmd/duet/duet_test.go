package duetcmder_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	duetcmder "github.com/papercomputeco/duet/cmd/duet"
	"github.com/papercomputeco/duet/pkg/credentials"
	"github.com/papercomputeco/duet/pkg/llm"
)

var envVars = []string{
	"OLLAMA_HOST",
	"OPENAI_API_KEY",
	"OPENAI_BASE_URL",
	"DUET_OLLAMA_HOST",
	"DUET_OPENAI_API_KEY",
	"DUET_OPENAI_BASE_URL",
	"DUET_PROVIDER_NAME",
	"DUET_CONVERSATION_TURNS",
}

// recorder is a stub model server that numbers its replies and keeps every
// decoded request body.
type recorder struct {
	mu     sync.Mutex
	bodies []map[string]any
	auth   []string
}

func (r *recorder) record(req *http.Request) int {
	defer GinkgoRecover()

	var body map[string]any
	Expect(json.NewDecoder(req.Body).Decode(&body)).To(Succeed())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bodies = append(r.bodies, body)
	r.auth = append(r.auth, req.Header.Get("Authorization"))
	return len(r.bodies)
}

func (r *recorder) ollama() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/api/generate" {
			http.NotFound(w, req)
			return
		}
		n := r.record(req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"response":"R%d","done":true}`, n)
	})
}

func (r *recorder) openai() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, req)
			return
		}
		n := r.record(req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":"C%d"}}]}`, n)
	})
}

var _ = Describe("Duet Command", func() {
	var (
		tmpDir string
		rec    *recorder
		stdout *bytes.Buffer
		stderr *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := duetcmder.NewDuetCmd()
		cmd.SetOut(stdout)
		cmd.SetErr(stderr)
		cmd.SetArgs(append([]string{"--config-dir", tmpDir}, args...))
		return cmd.Execute()
	}

	BeforeEach(func() {
		for _, key := range envVars {
			if prev, ok := os.LookupEnv(key); ok {
				DeferCleanup(os.Setenv, key, prev)
			}
			Expect(os.Unsetenv(key)).To(Succeed())
		}

		var err error
		tmpDir, err = os.MkdirTemp("", "duet-cmd-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(os.RemoveAll, tmpDir)

		rec = &recorder{}
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
	})

	It("registers the subcommands", func() {
		cmd := duetcmder.NewDuetCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("config", "auth", "version"))
	})

	It("requires exactly one prompt", func() {
		Expect(execute()).NotTo(Succeed())
		Expect(execute("one", "two")).NotTo(Succeed())
	})

	Describe("with ollama", func() {
		var server *httptest.Server

		BeforeEach(func() {
			server = httptest.NewServer(rec.ollama())
			DeferCleanup(server.Close)
		})

		It("prints one line per turn", func() {
			err := execute("--ollama-host", server.URL, "--model-a", "A", "--model-b", "B", "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(stdout.String()).To(Equal("A: R1\nB: R2\nA: R3\nB: R4\n"))

			prompts := []any{}
			for _, b := range rec.bodies {
				prompts = append(prompts, b["prompt"])
				Expect(b["stream"]).To(BeFalse())
			}
			Expect(prompts).To(Equal([]any{
				"User: hi",
				"User: hi\nA: R1",
				"User: hi\nB: R2",
				"User: hi\nA: R1\nA: R3",
			}))
		})

		It("uses the default models", func() {
			Expect(execute("--ollama-host", server.URL, "-n", "2", "hi")).To(Succeed())
			Expect(stdout.String()).To(Equal("llama2: R1\nllama2: R2\n"))
		})

		It("makes no requests for zero turns", func() {
			Expect(execute("--ollama-host", server.URL, "--turns", "0", "hi")).To(Succeed())
			Expect(stdout.String()).To(BeEmpty())
			Expect(rec.bodies).To(BeEmpty())
		})

		It("fails on a negative turns value instead of running an empty conversation", func() {
			Expect(os.Setenv("DUET_CONVERSATION_TURNS", "-1")).To(Succeed())

			err := execute("--ollama-host", server.URL, "hi")
			Expect(err).To(MatchError(ContainSubstring("invalid conversation.turns")))
			Expect(stdout.String()).To(BeEmpty())
			Expect(rec.bodies).To(BeEmpty())
		})

		It("treats a subcommand name after -- as the prompt", func() {
			Expect(execute("--ollama-host", server.URL, "-n", "1", "--", "version")).To(Succeed())
			Expect(stdout.String()).To(Equal("llama2: R1\n"))
			Expect(rec.bodies[0]["prompt"]).To(Equal("User: version"))
		})

		It("reads the host from OLLAMA_HOST", func() {
			Expect(os.Setenv("OLLAMA_HOST", server.URL)).To(Succeed())
			DeferCleanup(os.Unsetenv, "OLLAMA_HOST")

			Expect(execute("-n", "1", "hi")).To(Succeed())
			Expect(stdout.String()).To(Equal("llama2: R1\n"))
		})

		It("reads defaults from config.toml", func() {
			data := fmt.Sprintf(`[ollama]
host = %q

[conversation]
model_a = "mistral"
turns = 1
system_a = "Be brief."
`, server.URL)
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

			Expect(execute("hi")).To(Succeed())
			Expect(stdout.String()).To(Equal("mistral: R1\n"))
			Expect(rec.bodies[0]["prompt"]).To(Equal("System: Be brief.\nUser: hi"))
		})

		It("passes options through with JSON typing", func() {
			err := execute("--ollama-host", server.URL, "-n", "1",
				"--option", "temperature=0.2",
				"--option", "stop=[\"\\n\"]",
				"--option", "mirostat_tau=high",
				"hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.bodies[0]["options"]).To(Equal(map[string]any{
				"temperature":  0.2,
				"stop":         []any{"\n"},
				"mirostat_tau": "high",
			}))
		})

		It("rejects malformed options", func() {
			err := execute("--ollama-host", server.URL, "--option", "temperature", "hi")
			Expect(err).To(MatchError(ContainSubstring("expected key=value")))
			Expect(rec.bodies).To(BeEmpty())
		})

		It("appends JSON logs to --log-file", func() {
			logPath := filepath.Join(tmpDir, "duet.log")
			Expect(execute("--ollama-host", server.URL, "-n", "2", "--log-file", logPath, "hi")).To(Succeed())

			data, err := os.ReadFile(logPath)
			Expect(err).NotTo(HaveOccurred())

			var turns int
			for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
				var entry map[string]any
				Expect(json.Unmarshal([]byte(line), &entry)).To(Succeed())
				if entry["msg"] == "turn complete" {
					turns++
				}
			}
			Expect(turns).To(Equal(2))
		})

		It("writes the transcript as JSON", func() {
			Expect(execute("--ollama-host", server.URL, "-n", "2", "--format", "json", "hi")).To(Succeed())

			var transcript llm.Transcript
			Expect(json.Unmarshal(stdout.Bytes(), &transcript)).To(Succeed())
			Expect(transcript).To(Equal(llm.Transcript{
				{Speaker: "llama2", Text: "R1"},
				{Speaker: "llama2", Text: "R2"},
			}))
		})

		It("writes the transcript as YAML", func() {
			Expect(execute("--ollama-host", server.URL, "-n", "1", "-f", "yaml", "hi")).To(Succeed())

			var transcript llm.Transcript
			Expect(yaml.Unmarshal(stdout.Bytes(), &transcript)).To(Succeed())
			Expect(transcript).To(Equal(llm.Transcript{{Speaker: "llama2", Text: "R1"}}))
		})

		It("rejects unknown formats before calling the model", func() {
			err := execute("--ollama-host", server.URL, "--format", "xml", "hi")
			Expect(err).To(MatchError(ContainSubstring("unknown --format")))
			Expect(rec.bodies).To(BeEmpty())
		})

		It("loads the host from --env-file", func() {
			envPath := filepath.Join(tmpDir, "duet.env")
			Expect(os.WriteFile(envPath, []byte("OLLAMA_HOST="+server.URL+"\n"), 0o600)).To(Succeed())
			DeferCleanup(os.Unsetenv, "OLLAMA_HOST")

			Expect(execute("--env-file", envPath, "-n", "1", "hi")).To(Succeed())
			Expect(stdout.String()).To(Equal("llama2: R1\n"))
		})

		It("appends spans to --trace-file", func() {
			tracePath := filepath.Join(tmpDir, "trace.jsonl")
			Expect(execute("--ollama-host", server.URL, "-n", "2", "--trace-file", tracePath, "hi")).To(Succeed())

			f, err := os.Open(tracePath)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()

			names := []any{}
			dec := json.NewDecoder(f)
			for dec.More() {
				var span map[string]any
				Expect(dec.Decode(&span)).To(Succeed())
				names = append(names, span["Name"])
			}
			Expect(names).To(Equal([]any{"turn", "turn", "conversation"}))
		})

		It("renders markdown when asked", func() {
			Expect(execute("--ollama-host", server.URL, "-n", "1", "--render", "hi")).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring("llama2:"))
			Expect(stdout.String()).To(ContainSubstring("R1"))
		})
	})

	It("fails when the model server is unreachable", func() {
		server := httptest.NewServer(rec.ollama())
		server.Close()

		err := execute("--ollama-host", server.URL, "hi")
		Expect(err).To(MatchError(ContainSubstring("turn 1 (llama2)")))
		Expect(stdout.String()).To(BeEmpty())
	})

	It("fails for an unknown provider", func() {
		err := execute("--provider", "bedrock", "hi")
		Expect(err).To(MatchError(ContainSubstring("unknown provider type")))
	})

	Describe("with openai", func() {
		var server *httptest.Server

		BeforeEach(func() {
			server = httptest.NewServer(rec.openai())
			DeferCleanup(server.Close)
		})

		It("sends the --api-key as a bearer token", func() {
			err := execute("-p", "openai", "--openai-base-url", server.URL+"/v1", "--api-key", "sk-flag",
				"--model-a", "gpt-a", "--model-b", "gpt-b", "-n", "2", "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(stdout.String()).To(Equal("gpt-a: C1\ngpt-b: C2\n"))
			Expect(rec.auth).To(HaveEach("Bearer sk-flag"))
		})

		It("falls back to OPENAI_API_KEY", func() {
			Expect(os.Setenv("OPENAI_API_KEY", "sk-env")).To(Succeed())
			DeferCleanup(os.Unsetenv, "OPENAI_API_KEY")

			err := execute("-p", "openai", "--openai-base-url", server.URL+"/v1", "-n", "1", "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.auth).To(Equal([]string{"Bearer sk-env"}))
		})

		It("falls back to the stored credential", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("openai", "sk-stored")).To(Succeed())

			err = execute("-p", "openai", "--openai-base-url", server.URL+"/v1", "-n", "1", "hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.auth).To(Equal([]string{"Bearer sk-stored"}))
		})

		It("fails without any key", func() {
			err := execute("-p", "openai", "--openai-base-url", server.URL+"/v1", "hi")
			Expect(err).To(MatchError(ContainSubstring("api key is required")))
			Expect(rec.bodies).To(BeEmpty())
		})
	})
})
