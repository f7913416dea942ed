package go_seos

// RPC opcodes. Wire-stable: client and server must agree, and values must
// never be renumbered.
type rpcOp uint32

const (
	opRngGetBytes rpcOp = iota + 1
	opRngReseed

	opKeyGenerate
	opKeyImport
	opKeyMakePublic
	opKeyExport
	opKeyGetParams
	opKeyLoadParams
	opKeyGetAttribs
	opKeyFree

	opDigestCreate
	opDigestClone
	opDigestProcess
	opDigestFinalize
	opDigestFree

	opMacCreate
	opMacProcess
	opMacFinalize
	opMacFree

	opCipherCreate
	opCipherStart
	opCipherProcess
	opCipherFinalize
	opCipherFree

	opSignatureCreate
	opSignatureSign
	opSignatureVerify
	opSignatureFree

	opAgreementCreate
	opAgreementAgree
	opAgreementFree

	opTLSHandshake
	opTLSWrite
	opTLSRead
	opTLSReset
)

// Every response frame starts with the int32 error code of the operation.
// Operations under the buffer negotiation protocol follow it with the uint32
// byte count, which on ErrBufferTooSmall carries the required size; payload
// bytes follow only on success.
