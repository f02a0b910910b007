package tests

// DevManifest is a `ckb list-hashes -f json` output for a dev chain with the capacity diff
// lock script deployed as a genesis cell.
const DevManifest = `{
  "ckb_dev": {
    "spec_hash": "0x3036c73473a371f3aa61c588c38924a93fb8513e481fa7c8d884fc4cf5fd368a",
    "genesis": "0x823b2ff5785b12da8b1363cac9a5cbe566d8b715a4311441b119c39a0367488c",
    "cellbase": "0x1a3a2cd5e0e5ebc18a6e3d4b7adbd2bf4e4ce4f1c6d68d3e61ab2d1c3a0d2f1b",
    "system_cells": [
      {
        "path": "Bundled(specs/cells/secp256k1_blake160_sighash_all)",
        "tx_hash": "0x1a3a2cd5e0e5ebc18a6e3d4b7adbd2bf4e4ce4f1c6d68d3e61ab2d1c3a0d2f1b",
        "index": 1,
        "data_hash": "0x709f3fda12f561cfacf92273c57a98fede188a3f1a59b1f888d113f9cce08649",
        "type_hash": "0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8"
      },
      {
        "path": "Bundled(specs/cells/dao)",
        "tx_hash": "0x1a3a2cd5e0e5ebc18a6e3d4b7adbd2bf4e4ce4f1c6d68d3e61ab2d1c3a0d2f1b",
        "index": 2,
        "data_hash": "0x32064a14ce10d95d4b7343054cc19d73b25b16ae61a6c681011ca781a60c7923",
        "type_hash": "0x82d76d1b75fe2fd9a27dfbaa65a039221a380d76c926f378d3f81cf3e7e13f2e"
      },
      {
        "path": "Bundled(specs/cells/secp256k1_data)",
        "tx_hash": "0x1a3a2cd5e0e5ebc18a6e3d4b7adbd2bf4e4ce4f1c6d68d3e61ab2d1c3a0d2f1b",
        "index": 3,
        "data_hash": "0x9799bee251b975b82c45a02154ce28cec89c5853ecc14d12b7b8cccfc19e0af4",
        "type_hash": null
      },
      {
        "path": "Bundled(specs/cells/secp256k1_blake160_multisig_all)",
        "tx_hash": "0x1a3a2cd5e0e5ebc18a6e3d4b7adbd2bf4e4ce4f1c6d68d3e61ab2d1c3a0d2f1b",
        "index": 4,
        "data_hash": "0x43400de165f0821abf63dcac299bbdf7fd73898675ee4ddb099b0a0d8db63bfb",
        "type_hash": "0x5c5069eb0857efc65e1bca0c07df34c31663b3622fd3876c876320fc9634e2a8"
      },
      {
        "path": "File(../build/ckb-sdk-examples-capacity-diff)",
        "tx_hash": "0x1a3a2cd5e0e5ebc18a6e3d4b7adbd2bf4e4ce4f1c6d68d3e61ab2d1c3a0d2f1b",
        "index": 5,
        "data_hash": "0x4aa6e5ff8bc5b3eb35d5a1a7c1c1d8e7d27abf1ac3a0f0fa2e0d6e6b4e5b9f0c",
        "type_hash": "0xf4c5ec9c2d0a9f1b0b5a6d6b8b9d9bb5e2fc6b7a0e4a0d2f5e1b2c3d4e5f6a7b"
      }
    ],
    "dep_groups": [
      {
        "included_cells": [
          "Bundled(specs/cells/secp256k1_data)",
          "Bundled(specs/cells/secp256k1_blake160_sighash_all)"
        ],
        "tx_hash": "0x2dcc1b1e6ef0a8f8f1e7ee3b0f4f6c1d2b9f5d3a6c9e8b7a4f3e2d1c0b9a8f7e",
        "index": 0
      },
      {
        "included_cells": [
          "Bundled(specs/cells/secp256k1_data)",
          "Bundled(specs/cells/secp256k1_blake160_multisig_all)"
        ],
        "tx_hash": "0x2dcc1b1e6ef0a8f8f1e7ee3b0f4f6c1d2b9f5d3a6c9e8b7a4f3e2d1c0b9a8f7e",
        "index": 1
      }
    ]
  }
}`
