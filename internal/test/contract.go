package test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github/chapool/contract-gateway/internal/contract"
)

// ContractABI is the interface of the contract used across tests.
const ContractABI = `[
	{"type": "constructor", "stateMutability": "nonpayable", "inputs": [{"name": "initial", "type": "uint256"}]},
	{"type": "function", "name": "myFunction", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
	{"type": "function", "name": "getInfo", "stateMutability": "view",
		"inputs": [{"name": "who", "type": "address"}],
		"outputs": [{"name": "name", "type": "string"}, {"name": "active", "type": "bool"}, {"name": "tag", "type": "bytes32"}]},
	{"type": "function", "name": "setValue", "stateMutability": "nonpayable", "inputs": [{"name": "value", "type": "uint256"}], "outputs": []},
	{"type": "function", "name": "setMany", "stateMutability": "nonpayable",
		"inputs": [{"name": "values", "type": "uint64[]"}, {"name": "label", "type": "bytes"}], "outputs": []},
	{"type": "event", "name": "ValueChanged", "anonymous": false,
		"inputs": [{"name": "sender", "type": "address", "indexed": true}, {"name": "value", "type": "uint256", "indexed": false}]}
]`

// ContractBytecode is placeholder creation code; the FakeChain never runs it.
const ContractBytecode = "0x6080604052348015600e575f5ffd5b50"

// ContractArtifact parses ContractABI and ContractBytecode.
func ContractArtifact(t *testing.T) *contract.Artifact {
	t.Helper()

	artifact, err := contract.ParseArtifact([]byte(ContractABI), ContractBytecode)
	require.NoError(t, err)

	return artifact
}

// WriteContractFiles writes the test artifact to a temporary directory and
// returns the ABI and bytecode paths.
func WriteContractFiles(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	abiPath := filepath.Join(dir, "contract.abi")
	binPath := filepath.Join(dir, "contract.bin")

	require.NoError(t, os.WriteFile(abiPath, []byte(ContractABI), 0o600))
	require.NoError(t, os.WriteFile(binPath, []byte(ContractBytecode+"\n"), 0o600))

	return abiPath, binPath
}
