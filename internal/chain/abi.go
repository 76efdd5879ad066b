package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Subset of the MochaTreeRights ABI the portal actually calls. The farm
// config getter returns flat outputs, one per field.
const mochaTreeABIJSON = `[
  {"name":"getActiveFarmIds","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256[]"}]},
  {"name":"getFarmConfig","type":"function","stateMutability":"view","inputs":[{"name":"farmId","type":"uint256"}],"outputs":[
    {"name":"name","type":"string"},
    {"name":"shareTokenSymbol","type":"string"},
    {"name":"shareTokenAddress","type":"address"},
    {"name":"owner","type":"address"},
    {"name":"treeCount","type":"uint256"},
    {"name":"targetYieldBps","type":"uint256"},
    {"name":"active","type":"bool"}]},
  {"name":"purchaseBond","type":"function","stateMutability":"payable","inputs":[{"name":"farmId","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"name":"redeemBond","type":"function","stateMutability":"nonpayable","inputs":[{"name":"bondId","type":"uint256"}],"outputs":[]},
  {"name":"redeemBondEarly","type":"function","stateMutability":"nonpayable","inputs":[{"name":"bondId","type":"uint256"}],"outputs":[]},
  {"name":"rolloverBond","type":"function","stateMutability":"nonpayable","inputs":[{"name":"bondId","type":"uint256"},{"name":"farmId","type":"uint256"}],"outputs":[]}
]`

const erc20ABIJSON = `[
  {"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	mochaTreeABI abi.ABI
	erc20ABI     abi.ABI
)

func init() {
	var err error
	mochaTreeABI, err = abi.JSON(strings.NewReader(mochaTreeABIJSON))
	if err != nil {
		panic("chain: invalid MochaTreeRights ABI: " + err.Error())
	}
	erc20ABI, err = abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic("chain: invalid ERC-20 ABI: " + err.Error())
	}
}

// abiFor picks the ABI that declares the method. The portal only ever talks
// to the rights contract and ERC-20 share/payment tokens.
func abiFor(method string) abi.ABI {
	if _, ok := mochaTreeABI.Methods[method]; ok {
		return mochaTreeABI
	}
	return erc20ABI
}
