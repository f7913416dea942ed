package go_seos

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

// startRPCPair creates a served library instance and a client instance
// connected through one dataport.
func startRPCPair(t *testing.T) (server, client *Crypto) {
	t.Helper()
	dp := NewDataport()
	server, err := NewRPCServer(LibraryConfig{Entropy: testEntropy}, dp)
	if err != nil {
		t.Fatalf("NewRPCServer: %v", err)
	}
	go server.Server().Serve()
	client, err = NewRPCClient(dp, nil)
	if err != nil {
		t.Fatalf("NewRPCClient: %v", err)
	}
	t.Cleanup(func() {
		client.Free()
		server.Free()
		dp.Close()
	})
	return server, client
}

// TestRPCDigest verifies that a digest computed across the dataport matches
// the known vector.
func TestRPCDigest(t *testing.T) {
	_, client := startRPCPair(t)

	d, err := client.NewDigest(DigestSHA256)
	if err != nil {
		t.Fatalf("NewDigest: %v", err)
	}
	if err := d.Process([]byte("abc")); err != nil {
		t.Fatalf("Process: %v", err)
	}

	// the required size crosses the wire even when the buffer is refused
	n, err := d.Finalize(nil)
	if !errors.Is(err, ErrBufferTooSmall) || n != DigestSHA256Size {
		t.Fatalf("Finalize(nil) = %d, %v, want (%d, ErrBufferTooSmall)", n, err, DigestSHA256Size)
	}

	out := make([]byte, n)
	if n, err = d.Finalize(out); err != nil || n != DigestSHA256Size {
		t.Fatalf("Finalize = %d, %v", n, err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if hex.EncodeToString(out) != want {
		t.Errorf("digest = %x, want %s", out, want)
	}
	if err := d.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
}

// TestRPCRandom verifies RNG requests across the dataport.
func TestRPCRandom(t *testing.T) {
	_, client := startRPCPair(t)

	buf := make([]byte, 64)
	if n, err := client.GetRandomBytes(RngFlagNone, buf); err != nil || n != len(buf) {
		t.Fatalf("GetRandomBytes = %d, %v", n, err)
	}
	if bytes.Equal(buf, make([]byte, 64)) {
		t.Error("DRBG output is all zero")
	}
	if err := client.ReseedRandom([]byte("remote seed")); err != nil {
		t.Fatalf("ReseedRandom: %v", err)
	}
	if _, err := client.GetRandomBytes(RngFlags(1), buf); !errors.Is(err, ErrNotSupported) {
		t.Errorf("unknown flag: got %v, want ErrNotSupported", err)
	}

	// the server reports the same over-cap code as the local library
	if _, err := client.GetRandomBytes(RngFlagNone, make([]byte, DataportSize+1)); !errors.Is(err, ErrInsufficientSpace) {
		t.Errorf("oversized buffer: got %v, want ErrInsufficientSpace", err)
	}
}

// TestRPCKeyExportPolicy verifies that the server refuses to ship material of
// non-exportable keys across the dataport.
func TestRPCKeyExportPolicy(t *testing.T) {
	_, client := startRPCPair(t)

	open, err := client.GenerateKey(&KeySpec{
		Type:    KeyTypeAES,
		Bits:    256,
		Attribs: KeyAttribs{Exportable: true},
	})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	data, err := open.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	aes, ok := data.(*AESKeyData)
	if !ok || len(aes.Key) != 32 {
		t.Fatalf("exported %T, key length %d", data, len(aes.Key))
	}
	if !aes.Attribs.Exportable {
		t.Error("attributes lost in transit")
	}

	sealed, err := client.GenerateKey(&KeySpec{Type: KeyTypeAES, Bits: 256})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if _, err := sealed.Export(); !errors.Is(err, ErrOperationDenied) {
		t.Errorf("export of sealed key: got %v, want ErrOperationDenied", err)
	}

	// attributes and parameters are public, policy does not apply
	if attribs, err := sealed.Attribs(); err != nil || attribs.Exportable {
		t.Errorf("Attribs = %+v, %v", attribs, err)
	}
}

// TestRPCMacMatchesLocal verifies that a MAC over the dataport equals the
// same computation in the server's local library.
func TestRPCMacMatchesLocal(t *testing.T) {
	server, client := startRPCPair(t)

	keyData := &MACKeyData{Key: []byte("shared mac secret"), Attribs: KeyAttribs{Exportable: true}}
	msg := []byte("request body")

	macOf := func(c *Crypto) []byte {
		key, err := c.ImportKey(keyData)
		if err != nil {
			t.Fatalf("ImportKey: %v", err)
		}
		m, err := c.NewMac(MacHMACSHA256, key)
		if err != nil {
			t.Fatalf("NewMac: %v", err)
		}
		if err := m.Process(msg); err != nil {
			t.Fatalf("Process: %v", err)
		}
		out := make([]byte, MacHMACSHA256Size)
		if _, err := m.Finalize(out); err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		return out
	}

	if local, remote := macOf(server), macOf(client); !bytes.Equal(local, remote) {
		t.Errorf("remote MAC %x differs from local %x", remote, local)
	}
}

// TestRPCMigrateKey verifies handing a server-side key to a client by raw
// reference.
func TestRPCMigrateKey(t *testing.T) {
	server, client := startRPCPair(t)

	key, err := server.GenerateKey(&KeySpec{Type: KeyTypeAES, Bits: 128})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	migrated, err := client.MigrateKey(key.Object())
	if err != nil {
		t.Fatalf("MigrateKey: %v", err)
	}

	// the client can build objects on the migrated key without ever seeing
	// the material
	iv := make([]byte, CBCIVSize)
	ci, err := client.NewCipher(CipherAESCBCEnc, migrated, iv)
	if err != nil {
		t.Fatalf("NewCipher: %v", err)
	}
	out := make([]byte, 32)
	if n, err := ci.Process(make([]byte, 32), out); err != nil || n != 32 {
		t.Fatalf("Process = %d, %v", n, err)
	}
	if err := ci.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if _, err := migrated.Export(); !errors.Is(err, ErrOperationDenied) {
		t.Errorf("export of migrated key: got %v, want ErrOperationDenied", err)
	}
}

// TestRPCStaleHandle verifies that raw references to dead or fabricated
// objects are rejected at migration.
func TestRPCStaleHandle(t *testing.T) {
	server, client := startRPCPair(t)

	key, err := server.GenerateKey(&KeySpec{Type: KeyTypeAES, Bits: 128})
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	ref := key.Object()
	if err := key.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if _, err := client.MigrateKey(ref); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("migrating a freed key: got %v, want ErrInvalidHandle", err)
	}
	if _, err := client.MigrateKey(LibObject{kind: kindKey, h: makeHandle(50, 3)}); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("fabricated reference: got %v, want ErrInvalidHandle", err)
	}
}

// TestRouterKeyPlacement verifies that a Router-mode instance splits keys
// between the local library and the remote server by attribute.
func TestRouterKeyPlacement(t *testing.T) {
	dp := NewDataport()
	server, err := NewRPCServer(LibraryConfig{Entropy: testEntropy}, dp)
	if err != nil {
		t.Fatalf("NewRPCServer: %v", err)
	}
	go server.Server().Serve()
	router, err := NewRouter(RouterConfig{
		Library:  LibraryConfig{Entropy: testEntropy},
		Dataport: dp,
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	t.Cleanup(func() {
		router.Free()
		server.Free()
		dp.Close()
	})

	local, err := router.GenerateKey(&KeySpec{
		Type:    KeyTypeAES,
		Bits:    128,
		Attribs: KeyAttribs{KeepLocal: true},
	})
	if err != nil {
		t.Fatalf("GenerateKey local: %v", err)
	}
	remote, err := router.GenerateKey(&KeySpec{Type: KeyTypeAES, Bits: 128})
	if err != nil {
		t.Fatalf("GenerateKey remote: %v", err)
	}
	if local.im != impl(router.lib) {
		t.Error("KeepLocal key did not land in the local library")
	}
	if remote.im != impl(router.client) {
		t.Error("default key did not land on the remote server")
	}

	// derived objects follow their key
	localMac, err := router.NewMac(MacHMACSHA256, local)
	if err != nil {
		t.Fatalf("NewMac: %v", err)
	}
	if localMac.im != impl(router.lib) {
		t.Error("object derived from a local key crossed the dataport")
	}
	remoteMac, err := router.NewMac(MacHMACSHA256, remote)
	if err != nil {
		t.Fatalf("NewMac: %v", err)
	}
	if remoteMac.im != impl(router.client) {
		t.Error("object derived from a remote key stayed local")
	}

	// keyless objects run locally when a library exists
	d, err := router.NewDigest(DigestSHA256)
	if err != nil {
		t.Fatalf("NewDigest: %v", err)
	}
	if d.im != impl(router.lib) {
		t.Error("digest of a Router instance crossed the dataport")
	}
}

// TestRPCConnectionClosed verifies the failure mode after dataport teardown.
func TestRPCConnectionClosed(t *testing.T) {
	dp := NewDataport()
	server, err := NewRPCServer(LibraryConfig{Entropy: testEntropy}, dp)
	if err != nil {
		t.Fatalf("NewRPCServer: %v", err)
	}
	go server.Server().Serve()
	client, err := NewRPCClient(dp, nil)
	if err != nil {
		t.Fatalf("NewRPCClient: %v", err)
	}

	buf := make([]byte, 16)
	if _, err := client.GetRandomBytes(RngFlagNone, buf); err != nil {
		t.Fatalf("GetRandomBytes before close: %v", err)
	}
	dp.Close()
	if _, err := client.GetRandomBytes(RngFlagNone, buf); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("call after close: got %v, want ErrConnectionClosed", err)
	}
}
