// Package output writes the result of a generation run to disk in the
// layouts consumed by the mitum config generator and the Ansible roles.
package output

import (
	"bytes"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/facebookgo/atomicfile"
	"github.com/mitum-deploy/keygen/keygen"
	"gopkg.in/yaml.v3"
)

const (
	NodeFile           = "node.json"
	PublicKeyFile      = "publickey"
	PrivateKeyFile     = "privatekey"
	AddressFile        = "address"
	PrivatePEMFile     = "private.pem"
	NodeKeysFile       = "node-keys.json"
	GenesisAccountFile = "genesis-account.json"
	SummaryJSONFile    = "keys-summary.json"
	SummaryYAMLFile    = "keys-summary.yml"
	ConfigKeyFile      = "config-key.txt"
	ReadmeFile         = "README.txt"

	privateMode = 0600
	publicMode  = 0644
	dirMode     = 0700
)

// IOError is a failure writing the output directory. The directory
// must not be treated as a complete key set.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%v %v: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NodeFileRecord is the content of nodeN/node.json.
type NodeFileRecord struct {
	NodeID     int    `json:"node_id"`
	Address    string `json:"address"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
	Type       string `json:"type"`
	Hint       string `json:"hint"`
}

// NodeKey is an entry of node-keys.json.
type NodeKey struct {
	PrivateKey string `json:"privatekey"`
	PublicKey  string `json:"publickey"`
	Address    string `json:"address"`
}

// Manifest lists the files written for a run.
type Manifest struct {
	Dir   string
	Files []string
}

type writer struct {
	dir   string
	files []string
}

// Write writes every file for result under dir. The summary files are
// written last: keys-summary.json only exists once everything else has
// been written.
func Write(dir string, result *keygen.Result) (*Manifest, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, &IOError{Op: "resolve", Path: dir, Err: err}
	}
	w := &writer{dir: absDir}

	if err := w.mkdir(absDir); err != nil {
		return nil, err
	}

	nodeKeys := make([]NodeKey, len(result.Nodes))
	for i, node := range result.Nodes {
		if err := w.writeNode(node); err != nil {
			return nil, err
		}
		nodeKeys[i] = NodeKey{
			PrivateKey: node.KeyPair.PrivateKey,
			PublicKey:  node.KeyPair.PublicKey,
			Address:    node.KeyPair.Address,
		}
	}

	if err := w.writeJSON(NodeKeysFile, nodeKeys, privateMode); err != nil {
		return nil, err
	}

	summary := result.Summary
	if summary.GenesisAccount != nil {
		if err := w.writeJSON(GenesisAccountFile, summary.GenesisAccount, publicMode); err != nil {
			return nil, err
		}
	}

	configKey, err := ConfigKeyText(nodeKeys, summary.GeneratedAt)
	if err != nil {
		return nil, &IOError{Op: "render", Path: ConfigKeyFile, Err: err}
	}
	if err := w.writeFile(ConfigKeyFile, configKey, privateMode); err != nil {
		return nil, err
	}

	readme, err := ReadmeText(summary)
	if err != nil {
		return nil, &IOError{Op: "render", Path: ReadmeFile, Err: err}
	}
	if err := w.writeFile(ReadmeFile, readme, publicMode); err != nil {
		return nil, err
	}

	summaryYAML, err := SummaryYAML(summary)
	if err != nil {
		return nil, &IOError{Op: "encode", Path: SummaryYAMLFile, Err: err}
	}
	if err := w.writeFile(SummaryYAMLFile, summaryYAML, publicMode); err != nil {
		return nil, err
	}

	if err := w.writeJSON(SummaryJSONFile, summary, publicMode); err != nil {
		return nil, err
	}

	return &Manifest{Dir: absDir, Files: w.files}, nil
}

func (w *writer) writeNode(node keygen.NodeRecord) error {
	nodeDir := keygen.NodeName(node.NodeID)
	if err := w.mkdir(filepath.Join(w.dir, nodeDir)); err != nil {
		return err
	}

	record := NodeFileRecord{
		NodeID:     node.NodeID,
		Address:    node.Address,
		PublicKey:  node.KeyPair.PublicKey,
		PrivateKey: node.KeyPair.PrivateKey,
		Type:       node.KeyPair.Type.String(),
		Hint:       node.KeyPair.Hint,
	}
	if err := w.writeJSON(filepath.Join(nodeDir, NodeFile), record, privateMode); err != nil {
		return err
	}

	files := []struct {
		name    string
		content []byte
		mode    os.FileMode
	}{
		{name: PublicKeyFile, content: []byte(node.KeyPair.PublicKey), mode: publicMode},
		{name: PrivateKeyFile, content: []byte(node.KeyPair.PrivateKey), mode: privateMode},
		{name: AddressFile, content: []byte(node.Address), mode: publicMode},
		{name: PrivatePEMFile, content: PrivateKeyPEM(node.KeyPair.PrivateKey), mode: privateMode},
	}
	for _, file := range files {
		if err := w.writeFile(filepath.Join(nodeDir, file.name), file.content, file.mode); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) mkdir(path string) error {
	if err := os.MkdirAll(path, dirMode); err != nil {
		return &IOError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

func (w *writer) writeJSON(name string, value any, mode os.FileMode) error {
	content, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return &IOError{Op: "encode", Path: name, Err: err}
	}
	return w.writeFile(name, content, mode)
}

func (w *writer) writeFile(name string, content []byte, mode os.FileMode) error {
	path := filepath.Join(w.dir, name)

	f, err := atomicfile.New(path, mode)
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	if _, err := f.Write(content); err != nil {
		f.Abort()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}

	w.files = append(w.files, name)
	return nil
}

// PrivateKeyPEM wraps the encoded private key in a PEM block.
func PrivateKeyPEM(privateKey string) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte(privateKey)})
}

func SummaryYAML(summary keygen.GenerationSummary) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	fmt.Fprintf(&buf, "# Generated by mitum-keygen\n# Network: %v\n# Generated at: %v\n\n",
		summary.NetworkID, summary.GeneratedAt.Format(time.RFC3339))

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(summary); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var configKeyTemplate = template.Must(template.New("config-key").Parse(
	`# Generated keys (legacy format)
# Generated at: {{.GeneratedAt}}
# Generated using mitum-keygen
{{range $i, $key := .Keys}}
{{if $i}}
{{end}}// Node {{$i}}
{
  privatekey: '{{$key.PrivateKey}}',
  publickey: '{{$key.PublicKey}}',
  address: '{{$key.Address}}'
}{{end}}
`))

// ConfigKeyText renders the legacy config-key.txt format.
func ConfigKeyText(keys []NodeKey, generatedAt time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := configKeyTemplate.Execute(&buf, struct {
		GeneratedAt string
		Keys        []NodeKey
	}{
		GeneratedAt: generatedAt.UTC().Format(time.RFC3339),
		Keys:        keys,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var readmeTemplate = template.Must(template.New("readme").Parse(
	`Mitum Keys Generated
====================
Date: {{.GeneratedAt}}
Network ID: {{.Summary.NetworkID}}
Node Count: {{.Summary.NodeCount}}
Key Type: {{.Summary.KeyType}}
Threshold: {{.Summary.Threshold}}%

Node Keys:
{{range .Summary.Nodes}}- node{{.NodeID}}: {{.Address}}
{{end}}{{with .Summary.GenesisAccount}}
Genesis Account:
Address: {{.Address}}
Threshold: {{.Threshold}}%
Keys:
{{range .Keys}}- {{.Key}} (weight {{.Weight}})
{{end}}
NOTE: the genesis address is the account address of the first
participating node. It is a placeholder, not an address derived
from the multi-signature key set.
{{end}}
Files Generated:
- keys-summary.json : summary in JSON format (no private keys)
- keys-summary.yml : summary in YAML format (no private keys)
- node-keys.json : key pairs in config generator format
- config-key.txt : key pairs in legacy format
- node*/ : per node key files and private key PEM
{{- if .Summary.GenesisAccount}}
- genesis-account.json : genesis account details
{{- end}}

IMPORTANT: Keep these files secure! Private keys should never be shared.
`))

func ReadmeText(summary keygen.GenerationSummary) ([]byte, error) {
	var buf bytes.Buffer
	err := readmeTemplate.Execute(&buf, struct {
		GeneratedAt string
		Summary     keygen.GenerationSummary
	}{
		GeneratedAt: summary.GeneratedAt.UTC().Format(time.RFC3339),
		Summary:     summary,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
