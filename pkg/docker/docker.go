// Package docker starts and stops throwaway containers for integration tests.
package docker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os/exec"
	"time"
)

type Container struct {
	Name     string
	HostPort string
}

// Stop stops the container and removes its volumes.
func (c Container) Stop() error {
	return StopContainer(c.Name)
}

type containerInfo struct {
	NetworkSettings struct {
		Ports map[string][]struct {
			HostIP   string `json:"HostIp"`
			HostPort string `json:"HostPort"`
		} `json:"Ports"`
	} `json:"NetworkSettings"`
}

// StartContainer runs image under name, reusing a running container with the
// same name, and returns the host address mapped to port.
func StartContainer(image string, name string, port string, dockerArgs []string, containerArgs []string) (Container, error) {
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		c, err := startContainer(image, name, port, dockerArgs, containerArgs)
		if err == nil {
			return c, nil
		}

		lastErr = err
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}

	return Container{}, lastErr
}

func StopContainer(name string) error {
	if err := exec.Command("docker", "stop", name).Run(); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", name, err)
	}

	if err := exec.Command("docker", "rm", name, "-v").Run(); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", name, err)
	}

	return nil
}

func DumpContainerLogs(name string) []byte {
	out, err := exec.Command("docker", "logs", name).CombinedOutput()
	if err != nil {
		return nil
	}
	return out
}

func startContainer(image string, name string, port string, dockerArgs []string, containerArgs []string) (Container, error) {
	if c, err := exists(name, port); err == nil {
		return c, nil
	}

	//a stopped container with the same name blocks "docker run"
	_ = exec.Command("docker", "rm", name, "-v").Run()

	args := []string{"run", "-P", "-d", "--name", name}
	args = append(args, dockerArgs...)
	args = append(args, image)
	args = append(args, containerArgs...)

	var out bytes.Buffer
	cmd := exec.Command("docker", args...)
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return Container{}, fmt.Errorf("docker run %s: %w", image, err)
	}

	id := out.String()[:12]
	hostIP, hostPort, err := extractIPPort(id, port)
	if err != nil {
		_ = StopContainer(id)
		return Container{}, fmt.Errorf("extract IP port: %w", err)
	}

	return Container{Name: name, HostPort: net.JoinHostPort(hostIP, hostPort)}, nil
}

func extractIPPort(nameOrID string, port string) (string, string, error) {
	var out bytes.Buffer
	cmd := exec.Command("docker", "inspect", nameOrID)
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", "", fmt.Errorf("docker inspect %s: %w", nameOrID, err)
	}

	var infos []containerInfo
	if err := json.NewDecoder(&out).Decode(&infos); err != nil {
		return "", "", fmt.Errorf("decoding inspect output: %w", err)
	}

	if len(infos) == 0 {
		return "", "", fmt.Errorf("container %s not found", nameOrID)
	}

	for _, host := range infos[0].NetworkSettings.Ports[port+"/tcp"] {
		if host.HostIP == "::" { //skip IPv6
			continue
		}

		if host.HostIP == "" || host.HostIP == "0.0.0.0" {
			return "localhost", host.HostPort, nil
		}
		return host.HostIP, host.HostPort, nil
	}

	return "", "", fmt.Errorf("host:port not found for container %s", nameOrID)
}

func exists(name string, port string) (Container, error) {
	hostIP, hostPort, err := extractIPPort(name, port)
	if err != nil {
		return Container{}, fmt.Errorf("container %s not running: %w", name, err)
	}

	return Container{Name: name, HostPort: net.JoinHostPort(hostIP, hostPort)}, nil
}
