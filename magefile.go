//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

func Build() {
	mg.Deps(Generate, BuildMain)
}

func BuildMain() error {
	return sh.Run("go", "build", "-o", "build/ybrly", ".")
}

// Generate regenerates the gomock mocks
func Generate() error {
	return sh.Run("go", "generate", "./...")
}

func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

func Lint() error {
	return sh.Run("go", "vet", "./...")
}

func Install() error {
	return sh.Run("go", "install", ".")
}
