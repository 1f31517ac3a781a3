package contract

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// Artifact is the compiled output of the contract the gateway serves.
type Artifact struct {
	ABI      abi.ABI
	Bytecode []byte
}

// compiledArtifact is the object form written by solc --combined-json,
// Hardhat and Foundry. Bytecode is either a hex string or {"object": hex}.
type compiledArtifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode json.RawMessage `json:"bytecode"`
}

// LoadArtifact reads the ABI from abiPath and the deployment bytecode from
// bytecodePath. The ABI file may be a bare ABI array or a compiler artifact
// object that also carries the bytecode, in which case bytecodePath may be
// empty.
func LoadArtifact(abiPath string, bytecodePath string) (*Artifact, error) {
	if abiPath == "" {
		return nil, errors.New("contract ABI path is required")
	}

	abiJSON, err := os.ReadFile(abiPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read contract ABI %s", abiPath)
	}

	var bytecode string
	if bytecodePath != "" {
		raw, err := os.ReadFile(bytecodePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read contract bytecode %s", bytecodePath)
		}
		bytecode = string(raw)
	}

	return ParseArtifact(abiJSON, bytecode)
}

// ParseArtifact builds an Artifact from ABI JSON and hex bytecode. An empty
// bytecode falls back to the one embedded in a compiler artifact object.
func ParseArtifact(abiJSON []byte, bytecode string) (*Artifact, error) {
	abiJSON = bytes.TrimSpace(abiJSON)

	if bytes.HasPrefix(abiJSON, []byte("{")) {
		var compiled compiledArtifact
		if err := json.Unmarshal(abiJSON, &compiled); err != nil {
			return nil, errors.Wrap(err, "failed to parse contract artifact")
		}
		if len(compiled.ABI) == 0 {
			return nil, errors.New("contract artifact has no abi field")
		}

		abiJSON = compiled.ABI
		if strings.TrimSpace(bytecode) == "" {
			embedded, err := embeddedBytecode(compiled.Bytecode)
			if err != nil {
				return nil, err
			}
			bytecode = embedded
		}
	}

	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse contract ABI")
	}

	artifact := &Artifact{ABI: parsed}

	bytecode = strings.TrimSpace(bytecode)
	if bytecode != "" {
		if !strings.HasPrefix(bytecode, "0x") && !strings.HasPrefix(bytecode, "0X") {
			bytecode = "0x" + bytecode
		}

		code, err := hexutil.Decode(bytecode)
		if err != nil {
			return nil, errors.Wrap(err, "contract bytecode is not valid hex")
		}
		artifact.Bytecode = code
	}

	return artifact, nil
}

func embeddedBytecode(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var code string
	if err := json.Unmarshal(raw, &code); err == nil {
		return code, nil
	}

	var object struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &object); err != nil {
		return "", errors.Wrap(err, "failed to parse artifact bytecode")
	}

	return object.Object, nil
}
