package toolexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hughsie/zif-sub003/ziferr"
)

func TestGrubbyAddKernel(t *testing.T) {
	rec := &Recorder{}
	g := Grubby{Runner: rec}
	assert.NoError(t, g.AddKernel(context.Background(), "/boot/vmlinuz-new", "/boot/initrd-new.img", "Upgrade to 40", "root=UUID=abc ro"))

	last := rec.Last()
	assert.Equal(t, "grubby", last.CmdName)
	assert.Equal(t, []string{
		"--add-kernel", "/boot/vmlinuz-new",
		"--initrd", "/boot/initrd-new.img",
		"--title", "Upgrade to 40",
		"--args", "root=UUID=abc ro",
	}, last.Args)
}

func TestGrubbyMakeDefaultOnce(t *testing.T) {
	rec := &Recorder{}
	g := Grubby{Runner: rec}
	assert.NoError(t, g.MakeDefaultOnce(context.Background(), "/boot/vmlinuz-new"))
	assert.Equal(t, []string{"--set-default", "/boot/vmlinuz-new", "--set-default-once"}, rec.Last().Args)
}

func TestBlkidUUIDFor(t *testing.T) {
	rec := &Recorder{OutputValue: "1234-5678"}
	b := Blkid{Runner: rec}
	uuid, err := b.UUIDFor(context.Background(), "/dev/sda1")
	assert.NoError(t, err)
	assert.Equal(t, "1234-5678", uuid)
	assert.Equal(t, []string{"-s", "UUID", "-o", "value", "/dev/sda1"}, rec.Last().Args)
}

func TestBlkidNoUUID(t *testing.T) {
	rec := &Recorder{OutputValue: ""}
	b := Blkid{Runner: rec}
	_, err := b.UUIDFor(context.Background(), "/dev/sda1")
	assert.True(t, ziferr.Is(err, ziferr.NoUuidForRoot))
}

func TestCreaterepoGenerate(t *testing.T) {
	rec := &Recorder{}
	c := Createrepo{Runner: rec}
	assert.NoError(t, c.Generate(context.Background(), "/var/cache/zif/repo"))
	assert.Equal(t, "createrepo_c", rec.Last().CmdName)
	assert.Equal(t, []string{"/var/cache/zif/repo"}, rec.Last().Args)
}

func TestSplitChecksum(t *testing.T) {
	algo, hex, err := SplitChecksum("sha256:deadbeef")
	assert.NoError(t, err)
	assert.Equal(t, "sha256", algo)
	assert.Equal(t, "deadbeef", hex)

	_, _, err = SplitChecksum("nocolon")
	assert.Error(t, err)
}

func TestCommandLineQuoting(t *testing.T) {
	line := CommandLine("grubby", "--args", "root=UUID=abc ro")
	assert.Equal(t, `grubby --args 'root=UUID=abc ro'`, line)
}
