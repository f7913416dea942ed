package go_seos

// Binary codecs for key material, key specs and domain parameters. The same
// encoding serves the RPC dataport and the keystore blob format, so both
// sides of a dataport and every keystore backend agree byte for byte.

const (
	attribFlagExportable = 1 << 0
	attribFlagKeepLocal  = 1 << 1
)

func writeKeyAttribs(s *Stream, a KeyAttribs) error {
	var flags byte
	if a.Exportable {
		flags |= attribFlagExportable
	}
	if a.KeepLocal {
		flags |= attribFlagKeepLocal
	}
	return s.WriteByte(flags)
}

func readKeyAttribs(s *Stream) (KeyAttribs, error) {
	flags, err := s.ReadByte()
	if err != nil {
		return KeyAttribs{}, err
	}
	return KeyAttribs{
		Exportable: flags&attribFlagExportable != 0,
		KeepLocal:  flags&attribFlagKeepLocal != 0,
	}, nil
}

func writeDHParams(s *Stream, p *DHParams) error {
	if err := s.WriteLenPrefixedBytes(p.P); err != nil {
		return err
	}
	return s.WriteLenPrefixedBytes(p.G)
}

func readDHParams(s *Stream) (DHParams, error) {
	p, err := s.ReadLenPrefixedBytes()
	if err != nil {
		return DHParams{}, err
	}
	g, err := s.ReadLenPrefixedBytes()
	if err != nil {
		return DHParams{}, err
	}
	return DHParams{P: p, G: g}, nil
}

func writeECCParams(s *Stream, p *ECCParams) error {
	for _, b := range [][]byte{p.P, p.A, p.B, p.Gx, p.Gy, p.N} {
		if err := s.WriteLenPrefixedBytes(b); err != nil {
			return err
		}
	}
	return nil
}

func readECCParams(s *Stream) (ECCParams, error) {
	var out ECCParams
	for _, dst := range []*[]byte{&out.P, &out.A, &out.B, &out.Gx, &out.Gy, &out.N} {
		b, err := s.ReadLenPrefixedBytes()
		if err != nil {
			return ECCParams{}, err
		}
		*dst = b
	}
	return out, nil
}

// encodeDHParams serializes DH group parameters for the params/buffer
// protocol surface.
func encodeDHParams(p *DHParams) ([]byte, error) {
	s := NewStream(nil)
	if err := writeDHParams(s, p); err != nil {
		return nil, ErrAborted
	}
	return s.Bytes(), nil
}

// encodeECCParams serializes explicit curve parameters for the params/buffer
// protocol surface.
func encodeECCParams(p *ECCParams) ([]byte, error) {
	s := NewStream(nil)
	if err := writeECCParams(s, p); err != nil {
		return nil, ErrAborted
	}
	return s.Bytes(), nil
}

// decodeECCParams parses a blob written by encodeECCParams.
func decodeECCParams(blob []byte) (*ECCParams, error) {
	s := NewStream(blob)
	p, err := readECCParams(s)
	if err != nil {
		return nil, ErrInvalidParameter
	}
	return &p, nil
}

// decodeDHParams parses a blob written by encodeDHParams.
func decodeDHParams(blob []byte) (*DHParams, error) {
	s := NewStream(blob)
	p, err := readDHParams(s)
	if err != nil {
		return nil, ErrInvalidParameter
	}
	return &p, nil
}

func writeKeyData(s *Stream, d KeyData) error {
	if d == nil {
		return s.WriteInt32(int32(KeyTypeNone))
	}
	if err := s.WriteInt32(int32(d.Type())); err != nil {
		return err
	}
	if err := writeKeyAttribs(s, d.KeyAttribs()); err != nil {
		return err
	}
	switch kd := d.(type) {
	case *AESKeyData:
		return s.WriteLenPrefixedBytes(kd.Key)
	case *MACKeyData:
		return s.WriteLenPrefixedBytes(kd.Key)
	case *RSAPubKeyData:
		return writeAll(s, kd.N, kd.E)
	case *RSAPrvKeyData:
		return writeAll(s, kd.N, kd.E, kd.D, kd.P, kd.Q)
	case *DHPubKeyData:
		if err := writeDHParams(s, &kd.Params); err != nil {
			return err
		}
		return s.WriteLenPrefixedBytes(kd.Public)
	case *DHPrvKeyData:
		if err := writeDHParams(s, &kd.Params); err != nil {
			return err
		}
		return s.WriteLenPrefixedBytes(kd.Private)
	case *SECP256R1PubKeyData:
		return writeAll(s, kd.X, kd.Y)
	case *SECP256R1PrvKeyData:
		return s.WriteLenPrefixedBytes(kd.D)
	case *ECCPubKeyData:
		if err := writeECCParams(s, &kd.Params); err != nil {
			return err
		}
		return writeAll(s, kd.X, kd.Y)
	case *ECCPrvKeyData:
		if err := writeECCParams(s, &kd.Params); err != nil {
			return err
		}
		return s.WriteLenPrefixedBytes(kd.D)
	}
	return ErrInvalidParameter
}

func writeAll(s *Stream, blocks ...[]byte) error {
	for _, b := range blocks {
		if err := s.WriteLenPrefixedBytes(b); err != nil {
			return err
		}
	}
	return nil
}

func readAll(s *Stream, dsts ...*[]byte) error {
	for _, dst := range dsts {
		b, err := s.ReadLenPrefixedBytes()
		if err != nil {
			return err
		}
		*dst = b
	}
	return nil
}

func readKeyData(s *Stream) (KeyData, error) {
	typ, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	if KeyType(typ) == KeyTypeNone {
		return nil, nil
	}
	attribs, err := readKeyAttribs(s)
	if err != nil {
		return nil, err
	}

	switch KeyType(typ) {
	case KeyTypeAES:
		d := &AESKeyData{Attribs: attribs}
		err = readAll(s, &d.Key)
		return d, err
	case KeyTypeMAC:
		d := &MACKeyData{Attribs: attribs}
		err = readAll(s, &d.Key)
		return d, err
	case KeyTypeRSAPub:
		d := &RSAPubKeyData{Attribs: attribs}
		err = readAll(s, &d.N, &d.E)
		return d, err
	case KeyTypeRSAPrv:
		d := &RSAPrvKeyData{Attribs: attribs}
		err = readAll(s, &d.N, &d.E, &d.D, &d.P, &d.Q)
		return d, err
	case KeyTypeDHPub:
		d := &DHPubKeyData{Attribs: attribs}
		if d.Params, err = readDHParams(s); err != nil {
			return nil, err
		}
		err = readAll(s, &d.Public)
		return d, err
	case KeyTypeDHPrv:
		d := &DHPrvKeyData{Attribs: attribs}
		if d.Params, err = readDHParams(s); err != nil {
			return nil, err
		}
		err = readAll(s, &d.Private)
		return d, err
	case KeyTypeSECP256R1Pub:
		d := &SECP256R1PubKeyData{Attribs: attribs}
		err = readAll(s, &d.X, &d.Y)
		return d, err
	case KeyTypeSECP256R1Prv:
		d := &SECP256R1PrvKeyData{Attribs: attribs}
		err = readAll(s, &d.D)
		return d, err
	case KeyTypeECCPub:
		d := &ECCPubKeyData{Attribs: attribs}
		if d.Params, err = readECCParams(s); err != nil {
			return nil, err
		}
		err = readAll(s, &d.X, &d.Y)
		return d, err
	case KeyTypeECCPrv:
		d := &ECCPrvKeyData{Attribs: attribs}
		if d.Params, err = readECCParams(s); err != nil {
			return nil, err
		}
		err = readAll(s, &d.D)
		return d, err
	}
	return nil, ErrInvalidParameter
}

func writeKeySpec(s *Stream, spec *KeySpec) error {
	if err := s.WriteInt32(int32(spec.Type)); err != nil {
		return err
	}
	if err := writeKeyAttribs(s, spec.Attribs); err != nil {
		return err
	}
	if err := s.WriteUint32(uint32(spec.Bits)); err != nil {
		return err
	}
	var variant byte
	switch {
	case spec.DHParams != nil:
		variant = 1
	case spec.ECCParams != nil:
		variant = 2
	}
	if err := s.WriteByte(variant); err != nil {
		return err
	}
	switch variant {
	case 1:
		return writeDHParams(s, spec.DHParams)
	case 2:
		return writeECCParams(s, spec.ECCParams)
	}
	return nil
}

func readKeySpec(s *Stream) (*KeySpec, error) {
	typ, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	attribs, err := readKeyAttribs(s)
	if err != nil {
		return nil, err
	}
	bits, err := s.ReadUint32()
	if err != nil {
		return nil, err
	}
	variant, err := s.ReadByte()
	if err != nil {
		return nil, err
	}
	spec := &KeySpec{Type: KeyType(typ), Attribs: attribs, Bits: int(bits)}
	switch variant {
	case 0:
	case 1:
		p, err := readDHParams(s)
		if err != nil {
			return nil, err
		}
		spec.DHParams = &p
	case 2:
		p, err := readECCParams(s)
		if err != nil {
			return nil, err
		}
		spec.ECCParams = &p
	default:
		return nil, ErrInvalidParameter
	}
	return spec, nil
}
