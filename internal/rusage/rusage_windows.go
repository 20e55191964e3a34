//go:build windows

package rusage

import (
	"fmt"
	"os/exec"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// https://learn.microsoft.com/en-us/windows/win32/api/jobapi2/nf-jobapi2-queryinformationjobobject

const (
	jobObjectBasicAccountingInformationClass = 1
	hundredNSTicks                           = 100
)

type jobObjectBasicAccountingInformation struct {
	TotalUserTime             int64
	TotalKernelTime           int64
	ThisPeriodTotalUserTime   int64
	ThisPeriodTotalKernelTime int64
	TotalPageFaultCount       uint32
	TotalProcesses            uint32
	ActiveProcesses           uint32
	TotalTerminatedProcesses  uint32
}

// ChildSampler accounts every tracked child in a single job object. The
// job totals include processes that already exited, so they behave like
// RUSAGE_CHILDREN on unix.
type ChildSampler struct {
	job windows.Handle
}

// NewChildSampler creates the job object that benchmarked children are assigned to.
func NewChildSampler() (*ChildSampler, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create job object: %v", ErrSample, err)
	}
	return &ChildSampler{job: job}, nil
}

// Sample returns the CPU time of every process that was ever in the job.
func (s *ChildSampler) Sample() (Usage, error) {
	var info jobObjectBasicAccountingInformation
	err := windows.QueryInformationJobObject(s.job,
		jobObjectBasicAccountingInformationClass,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)), nil)
	if err != nil {
		return Usage{}, fmt.Errorf("%w: query job object: %v", ErrSample, err)
	}
	return Usage{
		User:   time.Duration(info.TotalUserTime * hundredNSTicks),
		System: time.Duration(info.TotalKernelTime * hundredNSTicks),
	}, nil
}

// Prepare starts the child suspended so it cannot run before it is in the job.
func (s *ChildSampler) Prepare(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP | windows.CREATE_SUSPENDED
}

// Started assigns the suspended child to the job and resumes its main thread.
func (s *ChildSampler) Started(cmd *exec.Cmd) error {
	pid := uint32(cmd.Process.Pid)

	hProcess, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, pid)
	if err != nil {
		return err
	}
	err = windows.AssignProcessToJobObject(s.job, hProcess)
	windows.CloseHandle(hProcess)
	if err != nil {
		return err
	}

	hThread, err := mainThreadOfPID(pid)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(hThread)

	_, err = windows.ResumeThread(hThread)
	return err
}

// Close releases the job object handle.
func (s *ChildSampler) Close() error {
	return windows.CloseHandle(s.job)
}

// mainThreadOfPID returns a suspend/resume handle to the first thread of a process.
func mainThreadOfPID(pid uint32) (windows.Handle, error) {
	hSnapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return windows.InvalidHandle, err
	}
	defer windows.CloseHandle(hSnapshot)

	var threadEntry windows.ThreadEntry32
	threadEntry.Size = uint32(unsafe.Sizeof(threadEntry))

	err = windows.Thread32First(hSnapshot, &threadEntry)
	for err == nil {
		if threadEntry.OwnerProcessID == pid {
			return windows.OpenThread(windows.THREAD_SUSPEND_RESUME, false, threadEntry.ThreadID)
		}
		err = windows.Thread32Next(hSnapshot, &threadEntry)
	}
	return windows.InvalidHandle, fmt.Errorf("no thread found for pid %d: %w", pid, err)
}

var (
	_ Sampler = (*ChildSampler)(nil)
	_ Tracker = (*ChildSampler)(nil)
)
