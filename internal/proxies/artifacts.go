package proxies

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/compose-network/proxy-deployer/internal/domain"
)

const (
	proxyAdminName       = "ProxyAdmin"
	transparentProxyName = "TransparentUpgradeableProxy"
	erc1967ProxyName     = "ERC1967Proxy"
)

// Artifacts holds the compiled proxy infrastructure contracts:
// the admin owning all transparent proxies, the transparent proxy itself
// (constructor: logic, admin, data), and the ERC1967 proxy used for uups
// (constructor: logic, data).
type Artifacts struct {
	ProxyAdmin  domain.Artifact
	Transparent domain.Artifact
	ERC1967     domain.Artifact
}

// LoadArtifacts reads the compiled proxy contracts from a contracts JSON
// file mapping contract names to {abi, bytecode}.
func LoadArtifacts(path string) (Artifacts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifacts{}, fmt.Errorf("failed to read compiled contracts: %w", err)
	}

	parsed, err := ParseArtifacts(data)
	if err != nil {
		return Artifacts{}, err
	}

	artifacts := Artifacts{}
	for name, target := range map[string]*domain.Artifact{
		proxyAdminName:       &artifacts.ProxyAdmin,
		transparentProxyName: &artifacts.Transparent,
		erc1967ProxyName:     &artifacts.ERC1967,
	} {
		artifact, ok := parsed[name]
		if !ok {
			return Artifacts{}, fmt.Errorf("compiled contracts at %s are missing %s", path, name)
		}
		*target = artifact
	}

	return artifacts, nil
}

// LoadArtifact reads a single named contract from a contracts JSON file.
func LoadArtifact(path, name string) (domain.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("failed to read compiled contracts: %w", err)
	}

	parsed, err := ParseArtifacts(data)
	if err != nil {
		return domain.Artifact{}, err
	}

	artifact, ok := parsed[name]
	if !ok {
		return domain.Artifact{}, fmt.Errorf("contract %s not found in %s", name, path)
	}

	return artifact, nil
}

// ParseArtifacts parses contract JSON data into artifacts by name.
func ParseArtifacts(data []byte) (map[string]domain.Artifact, error) {
	var result map[string]struct {
		ABI      json.RawMessage `json:"abi"`
		Bytecode string          `json:"bytecode"`
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse compiled contracts: %w", err)
	}

	artifacts := make(map[string]domain.Artifact, len(result))
	for name, contract := range result {
		parsedABI, err := abi.JSON(strings.NewReader(string(contract.ABI)))
		if err != nil {
			return nil, fmt.Errorf("failed to parse ABI for %s: %w", name, err)
		}

		artifacts[name] = domain.Artifact{
			Name:     name,
			ABI:      parsedABI,
			RawABI:   string(contract.ABI),
			Bytecode: common.Hex2Bytes(strings.TrimPrefix(contract.Bytecode, "0x")),
		}
	}

	return artifacts, nil
}
